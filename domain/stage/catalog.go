package stage

import (
	"errors"

	"github.com/fundwit/go-commons/types"
)

var ErrStageTypeNotFound = errors.New("stage type not found")

// StageType is the named definition of a workflow step.
type StageType struct {
	ID            int64           `json:"id" gorm:"primary_key"`
	Name          string          `json:"name"`
	ValueRequired bool            `json:"value_required"`
	Authority     *string         `json:"responsible_authority" gorm:"column:responsible_authority"`
	CreateTime    types.Timestamp `json:"create_time" sql:"type:DATETIME(6) NOT NULL"`
}

func (t *StageType) TableName() string {
	return "stage_types"
}

func (t StageType) ResponsibleAuthority() (string, bool) {
	if t.Authority == nil || *t.Authority == "" {
		return "", false
	}
	return *t.Authority, true
}

type Catalog map[int64]StageType

func NewCatalog(stageTypes []StageType) Catalog {
	c := Catalog{}
	for _, t := range stageTypes {
		c[t.ID] = t
	}
	return c
}

func (c Catalog) Lookup(id int64) (StageType, bool) {
	t, found := c[id]
	return t, found
}

// Resolve prefers the stage type embedded in the stage and falls back to the catalog.
func (c Catalog) Resolve(s Stage) (StageType, bool) {
	if s.StageType != nil {
		return *s.StageType, true
	}
	return c.Lookup(s.StageTypeID)
}

// Attach embeds catalog entries into stages, failing on the first unknown stage type.
func (c Catalog) Attach(stages []Stage) error {
	for i := range stages {
		t, found := c.Lookup(stages[i].StageTypeID)
		if !found {
			return ErrStageTypeNotFound
		}
		tt := t
		stages[i].StageType = &tt
	}
	return nil
}
