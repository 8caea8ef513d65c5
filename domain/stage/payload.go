package stage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrEmptyFlowGroup    = errors.New("flow group is empty")
	ErrInvalidStageRef   = errors.New("stage reference must carry exactly one of id and stage_type_id")
	ErrDuplicateStageRef = errors.New("stage is referenced more than once")
	ErrForeignStageRef   = errors.New("stage does not belong to the purchase")
)

// StageRef references an existing stage by ID or asks for a new stage of StageTypeID.
type StageRef struct {
	ID          int64 `json:"id,omitempty"`
	StageTypeID int64 `json:"stage_type_id,omitempty"`
}

func (r StageRef) IsNew() bool {
	return r.ID == 0
}

// RefGroup is the stages of one priority rank. A singleton is encoded as a bare object.
type RefGroup []StageRef

func (g RefGroup) MarshalJSON() ([]byte, error) {
	if len(g) == 1 {
		return json.Marshal(g[0])
	}
	return json.Marshal([]StageRef(g))
}

func (g *RefGroup) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var refs []StageRef
		if err := json.Unmarshal(trimmed, &refs); err != nil {
			return err
		}
		*g = refs
		return nil
	}
	var ref StageRef
	if err := json.Unmarshal(trimmed, &ref); err != nil {
		return err
	}
	*g = RefGroup{ref}
	return nil
}

// FlowUpdate is the purchase-update payload produced by the editor.
type FlowUpdate struct {
	Stages []RefGroup `json:"stages" binding:"required"`
}

// NewFlowUpdate encodes groups: new stages by stage type, persisted stages by id.
func NewFlowUpdate(groups []Group) FlowUpdate {
	update := FlowUpdate{Stages: []RefGroup{}}
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		refs := make(RefGroup, 0, len(g))
		for _, s := range g {
			if s.IsNew || s.ID <= 0 {
				refs = append(refs, StageRef{StageTypeID: s.StageTypeID})
			} else {
				refs = append(refs, StageRef{ID: s.ID})
			}
		}
		update.Stages = append(update.Stages, refs)
	}
	return update
}

func (u FlowUpdate) Validate() error {
	seen := map[int64]bool{}
	for i, g := range u.Stages {
		if len(g) == 0 {
			return fmt.Errorf("group %d: %w", i, ErrEmptyFlowGroup)
		}
		for _, ref := range g {
			if (ref.ID > 0) == (ref.StageTypeID > 0) || ref.ID < 0 || ref.StageTypeID < 0 {
				return fmt.Errorf("group %d: %w", i, ErrInvalidStageRef)
			}
			if ref.ID > 0 {
				if seen[ref.ID] {
					return fmt.Errorf("stage %d: %w", ref.ID, ErrDuplicateStageRef)
				}
				seen[ref.ID] = true
			}
		}
	}
	return nil
}

// ExistingIDs returns the ids of all referenced persisted stages.
func (u FlowUpdate) ExistingIDs() []int64 {
	var ids []int64
	for _, g := range u.Stages {
		for _, ref := range g {
			if !ref.IsNew() {
				ids = append(ids, ref.ID)
			}
		}
	}
	return ids
}

// StageTypeIDs returns the distinct stage types requested by new stage references.
func (u FlowUpdate) StageTypeIDs() []int64 {
	seen := map[int64]bool{}
	var ids []int64
	for _, g := range u.Stages {
		for _, ref := range g {
			if ref.IsNew() && !seen[ref.StageTypeID] {
				seen[ref.StageTypeID] = true
				ids = append(ids, ref.StageTypeID)
			}
		}
	}
	return ids
}
