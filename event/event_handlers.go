package event

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// EventHandler reacts to a committed event. It returns nil for events it does not handle.
type EventHandler func(e *EventRecord) *EventHandleResult

type EventHandleResult struct {
	Success           bool
	Message           string
	HandlerIdentifier string
}

// EventHandlers run in order after the transaction that recorded the event has committed.
var EventHandlers []EventHandler

var InvokeHandlersFunc = invokeHandlers

func invokeHandlers(record *EventRecord) []EventHandleResult {
	results := []EventHandleResult{}
	fields := logrus.Fields{"sourceType": record.SourceType, "sourceId": record.SourceId.String(), "category": record.EventCategory}
	for i, handler := range EventHandlers {
		r := invokeHandler(i, handler, record)
		if r == nil {
			continue
		}
		results = append(results, *r)

		entry := logrus.WithFields(fields).WithField("handler", r.HandlerIdentifier)
		if r.Success {
			entry.Debug("event handled: ", r.Message)
		} else {
			entry.Error("event handler failed: ", r.Message)
		}
	}
	return results
}

// invokeHandler turns a panicking handler into a failed result so the remaining handlers still run.
func invokeHandler(index int, handler EventHandler, record *EventRecord) (r *EventHandleResult) {
	defer func() {
		if err := recover(); err != nil {
			r = &EventHandleResult{Success: false, Message: fmt.Sprint(err), HandlerIdentifier: fmt.Sprintf("handler-%d", index)}
		}
	}()
	return handler(record)
}

func LogEventHandler(e *EventRecord) *EventHandleResult {
	logrus.WithFields(logrus.Fields{
		"sourceType": e.SourceType, "sourceId": e.SourceId.String(), "sourceDesc": e.SourceDesc,
		"category": e.EventCategory, "properties": len(e.UpdatedProperties), "relations": len(e.UpdatedRelations),
	}).Info("event recorded")
	return &EventHandleResult{Success: true, Message: "logged", HandlerIdentifier: "log-event-handler"}
}
