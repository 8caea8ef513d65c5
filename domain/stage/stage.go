package stage

import (
	"errors"
	"time"

	"github.com/fundwit/go-commons/types"
)

var ErrStageValueRequired = errors.New("stage type requires a value before completion")

// Stage is one workflow step of a purchase. Stages sharing a Priority form a parallel group.
type Stage struct {
	ID          int64      `json:"id" gorm:"primary_key"`
	PurchaseID  types.ID   `json:"purchase_id" sql:"type:BIGINT UNSIGNED NOT NULL"`
	StageTypeID int64      `json:"stage_type_id"`
	StageType   *StageType `json:"stage_type,omitempty" gorm:"-"`
	Priority    int        `json:"priority"`

	Value          string           `json:"value"`
	CompletionDate *types.Timestamp `json:"completion_date" sql:"type:DATETIME(6)"`
	CreateTime     types.Timestamp  `json:"create_time" sql:"type:DATETIME(6) NOT NULL"`

	// IsNew marks a stage created in the editor which has only a temporary id.
	IsNew bool `json:"-" gorm:"-"`
}

func (s *Stage) TableName() string {
	return "purchase_stages"
}

func (s Stage) IsCompleted() bool {
	return s.CompletionDate != nil && !s.CompletionDate.IsZero()
}

// IsPurchaseComplete reports whether every stage has a completion date.
func IsPurchaseComplete(stages []Stage) bool {
	for _, s := range stages {
		if !s.IsCompleted() {
			return false
		}
	}
	return true
}

// PendingStages returns the incomplete stages of the lowest priority group which still has incomplete stages.
func PendingStages(stages []Stage) []Stage {
	for _, g := range GroupByPriority(stages) {
		var pending []Stage
		for _, s := range g {
			if !s.IsCompleted() {
				pending = append(pending, s)
			}
		}
		if len(pending) > 0 {
			return pending
		}
	}
	return []Stage{}
}

// LastCompletion returns the latest completion date among the stages.
func LastCompletion(stages []Stage) (time.Time, bool) {
	var last time.Time
	found := false
	for _, s := range stages {
		if !s.IsCompleted() {
			continue
		}
		t := s.CompletionDate.Time()
		if !found || t.After(last) {
			last = t
			found = true
		}
	}
	return last, found
}
