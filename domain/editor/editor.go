package editor

import (
	"context"
	"errors"
	"fmt"
	"procurement/domain/stage"
	"sync"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownStage          = errors.New("unknown stage")
	ErrStageTypeRequired     = errors.New("a stage type must be selected")
	ErrInsertPositionMissing = errors.New("an insert position must be selected")
	ErrInsertAnchorMissing   = errors.New("an existing stage or group must be selected")
	ErrSubmitInFlight        = errors.New("a submission is already in progress")
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier receives user facing feedback.
type Notifier interface {
	Notify(level Level, message string)
}

type NotifierFunc func(level Level, message string)

func (f NotifierFunc) Notify(level Level, message string) {
	f(level, message)
}

// PurchaseUpdater submits a reshaped stage flow to the backend and returns the persisted flow.
type PurchaseUpdater interface {
	UpdatePurchaseStages(ctx context.Context, purchaseID types.ID, update stage.FlowUpdate) ([]stage.Stage, error)
}

// Editor arranges the stages of one purchase.
// Drag gestures and editing actions are serialized; Submit may run while the arrangement keeps changing.
type Editor struct {
	mu sync.Mutex

	purchaseID types.ID
	stages     map[int64]stage.Stage
	machine    Machine
	notifier   Notifier

	lastTempID int64
	lastKey    int
	submitting bool
}

func New(purchaseID types.ID, stages []stage.Stage, notifier Notifier) *Editor {
	e := &Editor{purchaseID: purchaseID, stages: map[int64]stage.Stage{}, notifier: notifier}
	for _, s := range stages {
		e.stages[s.ID] = s
		if s.ID < e.lastTempID {
			e.lastTempID = s.ID
		}
	}
	e.machine = NewMachine(newSnapshot(stage.GroupByPriority(stages), e.nextKey), e.nextKey)
	return e
}

func (e *Editor) nextKey() ContainerKey {
	e.lastKey++
	return ContainerKey(fmt.Sprintf("group-%d", e.lastKey))
}

func (e *Editor) notify(level Level, message string) {
	if e.notifier != nil {
		e.notifier.Notify(level, message)
	}
}

func (e *Editor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Snapshot()
}

func (e *Editor) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Phase()
}

func (e *Editor) Submitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitting
}

// Stage returns the working copy of a stage.
func (e *Editor) Stage(id int64) (stage.Stage, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, found := e.stages[id]
	return s, found
}

// Apply feeds one drag event to the state machine.
func (e *Editor) Apply(ev Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := e.machine.Apply(ev)
	if err != nil {
		return err
	}
	e.machine = next
	return nil
}

// ToggleDeletion flips the deletion mark of one stage.
func (e *Editor) ToggleDeletion(id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.machine.Snapshot()
	if _, found := s.ContainerOf(id); !found {
		return ErrUnknownStage
	}
	return e.replace(s.withDeletion([]int64{id}, !s.IsDeleted(id)))
}

// ToggleGroupDeletion marks every stage of the container, or clears the marks when all are already marked.
func (e *Editor) ToggleGroupDeletion(key ContainerKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.machine.Snapshot()
	if !s.HasContainer(key) {
		return ErrUnknownTarget
	}
	items := s.Items(key)
	all := true
	for _, id := range items {
		if !s.IsDeleted(id) {
			all = false
			break
		}
	}
	return e.replace(s.withDeletion(items, !all))
}

func (e *Editor) replace(s Snapshot) error {
	next, err := e.machine.replace(s)
	if err != nil {
		return err
	}
	e.machine = next
	return nil
}

// InsertStage adds a new stage of stageType relative to anchor, which is a stage or a container.
// The anchor may be omitted while the flow has no stage at all.
func (e *Editor) InsertStage(stageType *stage.StageType, anchor Target, position stage.Position) (stage.Stage, error) {
	s, err := e.insertStage(stageType, anchor, position)
	if err != nil {
		switch {
		case errors.Is(err, ErrStageTypeRequired), errors.Is(err, ErrInsertPositionMissing), errors.Is(err, ErrInsertAnchorMissing):
			e.notify(LevelWarning, err.Error())
		default:
			e.notify(LevelError, err.Error())
		}
		return stage.Stage{}, err
	}
	return s, nil
}

func (e *Editor) insertStage(stageType *stage.StageType, anchor Target, position stage.Position) (stage.Stage, error) {
	if stageType == nil || stageType.ID <= 0 {
		return stage.Stage{}, ErrStageTypeRequired
	}
	if position == "" {
		return stage.Stage{}, ErrInsertPositionMissing
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.machine.Phase() != PhaseIdle {
		return stage.Stage{}, ErrDragInProgress
	}
	snapshot := e.machine.Snapshot()
	order := snapshot.Order()

	index := 0
	switch anchor.Kind {
	case TargetItem:
		key, found := snapshot.ContainerOf(anchor.Item)
		if !found {
			return stage.Stage{}, ErrUnknownStage
		}
		index = snapshot.containerIndex(key)
	case TargetContainer:
		if index = snapshot.containerIndex(anchor.Container); index < 0 {
			return stage.Stage{}, ErrUnknownTarget
		}
	default:
		if len(order) > 0 {
			return stage.Stage{}, ErrInsertAnchorMissing
		}
	}

	id := e.lastTempID - 1
	groups, at, err := stage.Insert(snapshot.Arrangement(), index, position, id)
	if err != nil {
		return stage.Stage{}, err
	}

	var next Snapshot
	if len(groups) > len(order) {
		next = snapshot.withNewContainer(e.nextKey(), at, groups[at])
	} else {
		next = snapshot.withContainerItems(order[at], groups[at])
	}
	if err := e.replace(next); err != nil {
		return stage.Stage{}, err
	}

	t := *stageType
	created := stage.Stage{ID: id, PurchaseID: e.purchaseID, StageTypeID: t.ID, StageType: &t, IsNew: true}
	e.lastTempID = id
	e.stages[id] = created
	return created, nil
}

// Groups returns the current arrangement with priorities assigned by group order, including stages marked for deletion.
func (e *Editor) Groups() []stage.Group {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.groups(false)
}

func (e *Editor) groups(skipDeleted bool) []stage.Group {
	snapshot := e.machine.Snapshot()
	var groups []stage.Group
	for _, ids := range snapshot.Arrangement() {
		var g stage.Group
		for _, id := range ids {
			if skipDeleted && snapshot.IsDeleted(id) {
				continue
			}
			g = append(g, e.stages[id])
		}
		if len(g) > 0 {
			groups = append(groups, g)
		}
	}
	return stage.GroupByPriority(stage.Ungroup(groups))
}

// Commit drops the stages marked for deletion and returns the final flow with fresh priorities,
// together with the payload for the purchase-update call.
func (e *Editor) Commit() ([]stage.Stage, stage.FlowUpdate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commit()
}

func (e *Editor) commit() ([]stage.Stage, stage.FlowUpdate) {
	groups := e.groups(true)
	return stage.Ungroup(groups), stage.NewFlowUpdate(groups)
}

// Submit commits the arrangement and hands it to updater. Only one submission may be outstanding;
// a failed submission keeps the working arrangement so that it can be retried.
// On success the new stages take the ids of their persisted rows, so later submissions refer to them by id.
func (e *Editor) Submit(ctx context.Context, updater PurchaseUpdater) ([]stage.Stage, error) {
	e.mu.Lock()
	if e.submitting {
		e.mu.Unlock()
		e.notify(LevelWarning, ErrSubmitInFlight.Error())
		return nil, ErrSubmitInFlight
	}
	groups := e.groups(true)
	update := stage.NewFlowUpdate(groups)
	e.submitting = true
	e.mu.Unlock()

	persisted, err := updater.UpdatePurchaseStages(ctx, e.purchaseID, update)

	e.mu.Lock()
	e.submitting = false
	if err == nil {
		e.adopt(groups, persisted)
	}
	e.mu.Unlock()

	if err != nil {
		logrus.WithFields(logrus.Fields{"purchaseId": e.purchaseID.String(), "groups": len(update.Stages)}).
			Error("failed to submit purchase stages: ", err)
		e.notify(LevelError, err.Error())
		return nil, err
	}
	e.notify(LevelSuccess, "purchase stages updated")
	return persisted, nil
}

// adopt re-keys the new stages of the submitted groups with the ids the backend assigned them.
// The backend lists the rows it created after the kept members of each group, in request order.
func (e *Editor) adopt(submitted []stage.Group, persisted []stage.Stage) {
	stored := stage.GroupByPriority(persisted)
	for i, g := range submitted {
		if i >= len(stored) {
			return
		}
		kept := map[int64]bool{}
		var pending []stage.Stage
		for _, s := range g {
			if s.IsNew || s.ID <= 0 {
				pending = append(pending, s)
			} else {
				kept[s.ID] = true
			}
		}
		for _, row := range stored[i] {
			if len(pending) == 0 {
				break
			}
			if kept[row.ID] || row.StageTypeID != pending[0].StageTypeID {
				continue
			}
			e.rekey(pending[0].ID, row)
			pending = pending[1:]
		}
	}
}

func (e *Editor) rekey(tempID int64, row stage.Stage) {
	working, found := e.stages[tempID]
	if !found {
		return
	}
	delete(e.stages, tempID)
	if row.StageType == nil {
		row.StageType = working.StageType
	}
	row.IsNew = false
	e.stages[row.ID] = row
	e.machine = e.machine.rename(tempID, row.ID)
}
