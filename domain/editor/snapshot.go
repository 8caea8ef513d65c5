package editor

import (
	"fmt"
	"procurement/domain/stage"
)

// ContainerKey identifies one parallel group during an editing session, independently of priorities.
type ContainerKey string

// Snapshot is an immutable arrangement of stage ids in containers.
// Every update returns a new Snapshot and leaves the receiver untouched.
type Snapshot struct {
	containers map[ContainerKey][]int64
	order      []ContainerKey
	deleted    map[int64]bool
}

func newSnapshot(groups []stage.Group, nextKey func() ContainerKey) Snapshot {
	s := Snapshot{containers: map[ContainerKey][]int64{}, deleted: map[int64]bool{}}
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		key := nextKey()
		s.containers[key] = g.IDs()
		s.order = append(s.order, key)
	}
	return s
}

func (s Snapshot) clone() Snapshot {
	c := Snapshot{
		containers: make(map[ContainerKey][]int64, len(s.containers)),
		order:      append([]ContainerKey(nil), s.order...),
		deleted:    make(map[int64]bool, len(s.deleted)),
	}
	for k, items := range s.containers {
		c.containers[k] = append([]int64(nil), items...)
	}
	for id, v := range s.deleted {
		c.deleted[id] = v
	}
	return c
}

// Order returns the container keys in group order.
func (s Snapshot) Order() []ContainerKey {
	return append([]ContainerKey(nil), s.order...)
}

// Items returns the stage ids of a container in member order.
func (s Snapshot) Items(key ContainerKey) []int64 {
	return append([]int64(nil), s.containers[key]...)
}

// Arrangement returns the stage ids of every container in group order.
func (s Snapshot) Arrangement() [][]int64 {
	r := make([][]int64, 0, len(s.order))
	for _, key := range s.order {
		r = append(r, s.Items(key))
	}
	return r
}

func (s Snapshot) IsDeleted(id int64) bool {
	return s.deleted[id]
}

func (s Snapshot) HasContainer(key ContainerKey) bool {
	_, found := s.containers[key]
	return found
}

func (s Snapshot) ContainerOf(id int64) (ContainerKey, bool) {
	for _, key := range s.order {
		for _, item := range s.containers[key] {
			if item == id {
				return key, true
			}
		}
	}
	return "", false
}

func (s Snapshot) containerIndex(key ContainerKey) int {
	for i, k := range s.order {
		if k == key {
			return i
		}
	}
	return -1
}

func (s Snapshot) contains(t Target) bool {
	switch t.Kind {
	case TargetContainer:
		return s.HasContainer(t.Container)
	case TargetItem:
		_, found := s.ContainerOf(t.Item)
		return found
	case TargetGap:
		return t.Gap >= 0 && t.Gap <= len(s.order)
	}
	return false
}

// withoutItem removes id from its container and drops the container when it becomes empty.
func (s Snapshot) withoutItem(id int64) Snapshot {
	c := s.clone()
	key, found := c.ContainerOf(id)
	if !found {
		return c
	}
	items := c.containers[key]
	kept := items[:0]
	for _, item := range items {
		if item != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		delete(c.containers, key)
		c.order = removeKey(c.order, key)
	} else {
		c.containers[key] = kept
	}
	return c
}

// withItemPlaced moves id into container key next to member over, after it when after is set.
// A zero over, or one that is not a member of key, appends.
func (s Snapshot) withItemPlaced(id int64, key ContainerKey, over int64, after bool) (Snapshot, error) {
	if !s.HasContainer(key) {
		return s, fmt.Errorf("container %s: %w", key, ErrUnknownTarget)
	}
	c := s.withoutItem(id)
	if !c.HasContainer(key) {
		// the target held only id itself
		return s, nil
	}
	items := c.containers[key]
	index := len(items)
	for i, item := range items {
		if over != 0 && item == over {
			index = i
			if after {
				index = i + 1
			}
			break
		}
	}
	moved := make([]int64, 0, len(items)+1)
	moved = append(moved, items[:index]...)
	moved = append(moved, id)
	moved = append(moved, items[index:]...)
	c.containers[key] = moved
	return c, nil
}

// withSplitItem moves id into a new singleton container placed before the container at gap.
func (s Snapshot) withSplitItem(id int64, gap int, key ContainerKey) Snapshot {
	var anchor ContainerKey
	if gap >= 0 && gap < len(s.order) {
		anchor = s.order[gap]
	}
	c := s.withoutItem(id)
	position := len(c.order)
	if anchor != "" {
		if idx := c.containerIndex(anchor); idx >= 0 {
			position = idx
		} else {
			// the anchor was the emptied source container, so the item stays where it was
			position = gap
			if position > len(c.order) {
				position = len(c.order)
			}
		}
	}
	c.containers[key] = []int64{id}
	c.order = insertKey(c.order, position, key)
	return c
}

// withContainerMoved moves container key to the index occupied by container over.
func (s Snapshot) withContainerMoved(key, over ContainerKey) Snapshot {
	from, to := s.containerIndex(key), s.containerIndex(over)
	if from < 0 || to < 0 || from == to {
		return s
	}
	c := s.clone()
	c.order = removeKey(c.order, key)
	c.order = insertKey(c.order, to, key)
	return c
}

func (s Snapshot) withNewContainer(key ContainerKey, index int, items []int64) Snapshot {
	c := s.clone()
	c.containers[key] = append([]int64(nil), items...)
	c.order = insertKey(c.order, index, key)
	return c
}

func (s Snapshot) withContainerItems(key ContainerKey, items []int64) Snapshot {
	c := s.clone()
	c.containers[key] = append([]int64(nil), items...)
	return c
}

func (s Snapshot) withDeletion(ids []int64, deleted bool) Snapshot {
	c := s.clone()
	for _, id := range ids {
		if deleted {
			c.deleted[id] = true
		} else {
			delete(c.deleted, id)
		}
	}
	return c
}

// withRenamedItem gives stage from the id to, keeping its place and deletion mark.
func (s Snapshot) withRenamedItem(from, to int64) Snapshot {
	c := s.clone()
	for key, items := range c.containers {
		for i, item := range items {
			if item == from {
				c.containers[key][i] = to
			}
		}
	}
	if c.deleted[from] {
		delete(c.deleted, from)
		c.deleted[to] = true
	}
	return c
}

func removeKey(keys []ContainerKey, key ContainerKey) []ContainerKey {
	r := make([]ContainerKey, 0, len(keys))
	for _, k := range keys {
		if k != key {
			r = append(r, k)
		}
	}
	return r
}

func insertKey(keys []ContainerKey, index int, key ContainerKey) []ContainerKey {
	if index < 0 || index > len(keys) {
		index = len(keys)
	}
	r := make([]ContainerKey, 0, len(keys)+1)
	r = append(r, keys[:index]...)
	r = append(r, key)
	return append(r, keys[index:]...)
}
