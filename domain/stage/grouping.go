package stage

import (
	"errors"
	"sort"
)

var (
	ErrInsertIndexOutOfRange = errors.New("insert index out of range")
	ErrInsertTargetEmpty     = errors.New("insert target group is empty")
	ErrUnknownPosition       = errors.New("unknown insert position")
)

// Group is a non-empty set of stages sharing one priority.
type Group []Stage

func (g Group) IDs() []int64 {
	ids := make([]int64, 0, len(g))
	for _, s := range g {
		ids = append(ids, s.ID)
	}
	return ids
}

type Position string

const (
	PositionAbove  Position = "above"
	PositionBelow  Position = "below"
	PositionInside Position = "inside"
)

func (p Position) Valid() bool {
	return p == PositionAbove || p == PositionBelow || p == PositionInside
}

// GroupByPriority partitions stages into groups ordered by ascending priority.
// Members of a group keep their input order.
func GroupByPriority(stages []Stage) []Group {
	buckets := map[int]Group{}
	var priorities []int
	for _, s := range stages {
		if _, found := buckets[s.Priority]; !found {
			priorities = append(priorities, s.Priority)
		}
		buckets[s.Priority] = append(buckets[s.Priority], s)
	}
	sort.Ints(priorities)

	groups := make([]Group, 0, len(priorities))
	for _, p := range priorities {
		groups = append(groups, buckets[p])
	}
	return groups
}

// Ungroup flattens groups, assigning priority i+1 to every member of the i-th non-empty group.
// Only Priority is rewritten.
func Ungroup(groups []Group) []Stage {
	result := []Stage{}
	rank := 0
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		rank++
		for _, s := range g {
			s.Priority = rank
			result = append(result, s)
		}
	}
	return result
}

// Insert places item relative to groups[index]: above and below create a new singleton group,
// inside appends to the existing group. It returns the new grouping and the index of the group holding item.
// An empty grouping accepts above/below at index 0.
func Insert[G ~[]T, T any](groups []G, index int, position Position, item T) ([]G, int, error) {
	if !position.Valid() {
		return nil, -1, ErrUnknownPosition
	}
	if len(groups) == 0 && index == 0 && position != PositionInside {
		return []G{singleton[G](item)}, 0, nil
	}
	if index < 0 || index >= len(groups) {
		return nil, -1, ErrInsertIndexOutOfRange
	}

	result := make([]G, 0, len(groups)+1)
	switch position {
	case PositionAbove:
		result = append(result, groups[:index]...)
		result = append(result, singleton[G](item))
		result = append(result, groups[index:]...)
		return result, index, nil
	case PositionBelow:
		result = append(result, groups[:index+1]...)
		result = append(result, singleton[G](item))
		result = append(result, groups[index+1:]...)
		return result, index + 1, nil
	default:
		if len(groups[index]) == 0 {
			return nil, -1, ErrInsertTargetEmpty
		}
		merged := make(G, 0, len(groups[index])+1)
		merged = append(merged, groups[index]...)
		merged = append(merged, item)
		result = append(result, groups...)
		result[index] = merged
		return result, index, nil
	}
}

func singleton[G ~[]T, T any](item T) G {
	g := make(G, 0, 1)
	return append(g, item)
}
