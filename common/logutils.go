package common

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

func init() {
	ConfigureLogger(logrus.StandardLogger())
}

// ConfigureLogger applies LOG_LEVEL (default info) and LOG_FORMAT ("json" or text) to logger.
func ConfigureLogger(logger *logrus.Logger) {
	logger.Out = os.Stdout
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		logger.Formatter = &logrus.JSONFormatter{}
	} else {
		logger.Formatter = &logrus.TextFormatter{}
	}

	logger.SetLevel(logrus.InfoLevel)
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}
	logger.ReplaceHooks(logrus.LevelHooks{})
	logger.AddHook(&ServiceFieldsHook{})
}

type ServiceFieldsHook struct {
}

func (hook *ServiceFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook *ServiceFieldsHook) Fire(e *logrus.Entry) error {
	if _, found := e.Data["serviceName"]; !found {
		e.Data["serviceName"] = ServiceName()
	}
	e.Data["serviceInstance"] = ServiceInstance()
	return nil
}
