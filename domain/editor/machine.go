package editor

import (
	"errors"
)

var (
	ErrDragInProgress = errors.New("a drag gesture is already in progress")
	ErrNotDragging    = errors.New("no drag gesture in progress")
	ErrUnknownTarget  = errors.New("unknown drag target")
	ErrUnknownEvent   = errors.New("unknown drag event")
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDraggingItem
	PhaseDraggingContainer
)

func (p Phase) String() string {
	switch p {
	case PhaseDraggingItem:
		return "dragging-item"
	case PhaseDraggingContainer:
		return "dragging-container"
	default:
		return "idle"
	}
}

type Event interface {
	dragEvent()
}

// Measurement is what the drag surface reports for a pointer move.
type Measurement struct {
	Pointer    Point
	ActiveRect Rect
	Droppables []Droppable
}

type DragStart struct {
	Active Target
}

type DragOver struct {
	Measurement
}

type DragEnd struct {
	Measurement
}

type DragCancel struct{}

func (DragStart) dragEvent()  {}
func (DragOver) dragEvent()   {}
func (DragEnd) dragEvent()    {}
func (DragCancel) dragEvent() {}

// Machine is the drag state machine. It is a value: Apply returns the next machine and never mutates the receiver.
type Machine struct {
	phase   Phase
	current Snapshot
	origin  Snapshot
	active  Target
	over    Droppable
	hasOver bool

	newKey func() ContainerKey
}

func NewMachine(s Snapshot, newKey func() ContainerKey) Machine {
	return Machine{current: s, newKey: newKey}
}

func (m Machine) Phase() Phase {
	return m.phase
}

func (m Machine) Snapshot() Snapshot {
	return m.current
}

func (m Machine) Active() Target {
	return m.active
}

// Over returns the remembered drop target of the current gesture.
func (m Machine) Over() (Target, bool) {
	return m.over.Target, m.hasOver
}

func (m Machine) Apply(ev Event) (Machine, error) {
	switch e := ev.(type) {
	case DragStart:
		return m.start(e.Active)
	case DragOver:
		return m.dragOver(e.Measurement)
	case DragEnd:
		return m.dragEnd(e.Measurement)
	case DragCancel:
		return m.cancel()
	}
	return m, ErrUnknownEvent
}

// replace swaps the arrangement outside of a gesture.
func (m Machine) replace(s Snapshot) (Machine, error) {
	if m.phase != PhaseIdle {
		return m, ErrDragInProgress
	}
	m.current = s
	return m, nil
}

// rename swaps a stage id everywhere the machine refers to it, also during a gesture.
func (m Machine) rename(from, to int64) Machine {
	m.current = m.current.withRenamedItem(from, to)
	if m.phase != PhaseIdle {
		m.origin = m.origin.withRenamedItem(from, to)
	}
	if m.active.Kind == TargetItem && m.active.Item == from {
		m.active.Item = to
	}
	if m.hasOver && m.over.Target.Kind == TargetItem && m.over.Target.Item == from {
		m.over.Target.Item = to
	}
	return m
}

func (m Machine) start(active Target) (Machine, error) {
	if m.phase != PhaseIdle {
		return m, ErrDragInProgress
	}
	var phase Phase
	switch active.Kind {
	case TargetItem:
		phase = PhaseDraggingItem
	case TargetContainer:
		phase = PhaseDraggingContainer
	default:
		return m, ErrUnknownTarget
	}
	if !m.current.contains(active) {
		return m, ErrUnknownTarget
	}
	m.phase = phase
	m.origin = m.current
	m.active = active
	m.over, m.hasOver = Droppable{}, false
	return m, nil
}

func (m Machine) dragOver(ms Measurement) (Machine, error) {
	if m.phase == PhaseIdle {
		return m, ErrNotDragging
	}
	over, found := m.collide(ms)
	if !found {
		if m.phase == PhaseDraggingContainer {
			m.over, m.hasOver = Droppable{}, false
		}
		return m, nil
	}
	m.over, m.hasOver = over, true
	if m.phase == PhaseDraggingItem {
		m.current = m.moveAcross(over, ms.Pointer)
	}
	return m, nil
}

func (m Machine) dragEnd(ms Measurement) (Machine, error) {
	if m.phase == PhaseIdle {
		return m, ErrNotDragging
	}
	m, _ = m.dragOver(ms)
	if !m.hasOver {
		m.current = m.origin
		return m.finish(), nil
	}

	switch m.phase {
	case PhaseDraggingItem:
		m.current = m.drop(m.over, ms.Pointer)
	case PhaseDraggingContainer:
		m.current = m.current.withContainerMoved(m.active.Container, m.over.Target.Container)
	}
	return m.finish(), nil
}

func (m Machine) cancel() (Machine, error) {
	if m.phase == PhaseIdle {
		return m, ErrNotDragging
	}
	m.current = m.origin
	return m.finish(), nil
}

func (m Machine) finish() Machine {
	m.phase = PhaseIdle
	m.origin = Snapshot{}
	m.active = Target{}
	m.over, m.hasOver = Droppable{}, false
	return m
}

// collide picks the drop target. Item drags use pointer containment, then rectangle intersection,
// then the last valid target. Container drags use the nearest center among containers only.
func (m Machine) collide(ms Measurement) (Droppable, bool) {
	var candidates []Droppable
	for _, d := range ms.Droppables {
		if !m.current.contains(d.Target) {
			continue
		}
		switch m.phase {
		case PhaseDraggingContainer:
			if d.Target.Kind == TargetContainer {
				candidates = append(candidates, d)
			}
		case PhaseDraggingItem:
			if d.Target.Kind == TargetItem && d.Target.Item == m.active.Item {
				continue
			}
			candidates = append(candidates, d)
		}
	}

	var hits []Droppable
	if m.phase == PhaseDraggingContainer {
		hits = ClosestCenter(ms.ActiveRect, candidates)
	} else {
		hits = PointerWithin(ms.Pointer, candidates)
		if len(hits) == 0 {
			hits = RectIntersection(ms.ActiveRect, candidates)
		}
	}
	if len(hits) > 0 {
		return hits[0], true
	}
	if m.phase == PhaseDraggingItem && m.hasOver && m.current.contains(m.over.Target) {
		return m.over, true
	}
	return Droppable{}, false
}

func below(pointer Point, r Rect) bool {
	return pointer.Y > r.Top+r.Height/2
}

// moveAcross moves the dragged item into another container while hovering.
func (m Machine) moveAcross(over Droppable, pointer Point) Snapshot {
	id := m.active.Item
	source, found := m.current.ContainerOf(id)
	if !found {
		return m.current
	}
	var dest ContainerKey
	var near int64
	switch over.Target.Kind {
	case TargetContainer:
		dest = over.Target.Container
	case TargetItem:
		dest, _ = m.current.ContainerOf(over.Target.Item)
		near = over.Target.Item
	default:
		return m.current
	}
	if dest == "" || dest == source {
		return m.current
	}
	s, err := m.current.withItemPlaced(id, dest, near, near != 0 && below(pointer, over.Rect))
	if err != nil {
		return m.current
	}
	return s
}

func (m Machine) drop(over Droppable, pointer Point) Snapshot {
	id := m.active.Item
	switch over.Target.Kind {
	case TargetContainer:
		if s, err := m.current.withItemPlaced(id, over.Target.Container, 0, false); err == nil {
			return s
		}
	case TargetItem:
		if dest, found := m.current.ContainerOf(over.Target.Item); found {
			if s, err := m.current.withItemPlaced(id, dest, over.Target.Item, below(pointer, over.Rect)); err == nil {
				return s
			}
		}
	case TargetGap:
		return m.current.withSplitItem(id, over.Target.Gap, m.newKey())
	}
	return m.current
}
