package purchase

import (
	"context"
	"fmt"
	"procurement/domain/stage"
	"procurement/domain/stagetype"
	"procurement/domain/timeline"
	"procurement/event"
	"procurement/idgen"
	"procurement/persistence"
	"strconv"
	"strings"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Purchase struct {
	ID          types.ID        `json:"id"`
	PurposeID   types.ID        `json:"purpose_id" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Description string          `json:"description"`
	CreateTime  types.Timestamp `json:"create_time" sql:"type:DATETIME(6) NOT NULL"`
}

func (p *Purchase) TableName() string {
	return "purchases"
}

type Cost struct {
	ID          types.ID        `json:"id"`
	PurchaseID  types.ID        `json:"purchase_id" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Amount      decimal.Decimal `json:"amount" sql:"type:DECIMAL(20,4) NOT NULL"`
	Description string          `json:"description"`
}

func (c *Cost) TableName() string {
	return "purchase_costs"
}

type PurchaseDetail struct {
	Purchase

	Costs                []Cost        `json:"costs"`
	FlowStages           []stage.Stage `json:"flow_stages"`
	CurrentPendingStages []stage.Stage `json:"current_pending_stages"`
}

type CostCreation struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" binding:"max=255"`
}

type PurchaseCreation struct {
	PurposeID   types.ID       `json:"purpose_id" binding:"required"`
	Description string         `json:"description" binding:"required,max=1024"`
	Costs       []CostCreation `json:"costs" binding:"dive"`

	// Stages is the initial flow; only stage_type_id references are accepted.
	Stages []stage.RefGroup `json:"stages"`
}

type PurchaseQuery struct {
	PurposeID types.ID `json:"purposeId" form:"purposeId"`
}

// StageUpdating replaces the progress of a stage. A nil completion date reopens the stage.
type StageUpdating struct {
	CompletionDate *types.Timestamp `json:"completion_date"`
	Value          string           `json:"value" binding:"max=1024"`
}

var (
	purchaseIdWorker = idgen.NewWorker()
	costIdWorker     = idgen.NewWorker()

	CreatePurchaseFunc       = CreatePurchase
	DetailPurchaseFunc       = DetailPurchase
	QueryPurchasesFunc       = QueryPurchases
	UpdatePurchaseStagesFunc = UpdatePurchaseStages
	UpdateStageFunc          = UpdateStage
	PurchaseTimelineFunc     = PurchaseTimeline
	QueryPurchaseEventsFunc  = QueryPurchaseEvents
)

func CreatePurchase(ctx context.Context, c PurchaseCreation) (*PurchaseDetail, error) {
	flow := stage.FlowUpdate{Stages: c.Stages}
	if err := flow.Validate(); err != nil {
		return nil, err
	}
	if len(flow.ExistingIDs()) > 0 {
		return nil, fmt.Errorf("new purchase: %w", stage.ErrInvalidStageRef)
	}

	now := types.CurrentTimestamp()
	p := Purchase{ID: idgen.NextID(purchaseIdWorker), PurposeID: c.PurposeID, Description: c.Description, CreateTime: now}

	var ev *event.EventRecord
	txErr := persistence.ActiveDataSourceManager.GormDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		for _, cc := range c.Costs {
			cost := Cost{ID: idgen.NextID(costIdWorker), PurchaseID: p.ID, Amount: cc.Amount, Description: cc.Description}
			if err := tx.Create(&cost).Error; err != nil {
				return err
			}
		}
		if _, err := applyFlow(tx, p.ID, flow, nil, now); err != nil {
			return err
		}
		var err error
		ev, err = event.CreateEvent(event.SourceTypePurchase, p.ID, p.Description, event.EventCategoryCreated,
			nil, nil, now, tx)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	if event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}
	return DetailPurchase(ctx, p.ID)
}

func QueryPurchases(ctx context.Context, q PurchaseQuery) ([]Purchase, error) {
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if q.PurposeID > 0 {
		db = db.Where("purpose_id = ?", q.PurposeID)
	}
	purchases := []Purchase{}
	if err := db.Order("create_time ASC, id ASC").Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

func DetailPurchase(ctx context.Context, id types.ID) (*PurchaseDetail, error) {
	return detailPurchase(persistence.ActiveDataSourceManager.GormDB(ctx), id)
}

func detailPurchase(db *gorm.DB, id types.ID) (*PurchaseDetail, error) {
	detail := PurchaseDetail{}
	if err := db.Where("id = ?", id).First(&detail.Purchase).Error; err != nil {
		return nil, err
	}

	detail.Costs = []Cost{}
	if err := db.Where("purchase_id = ?", id).Order("id ASC").Find(&detail.Costs).Error; err != nil {
		return nil, err
	}

	stages, err := loadStages(db, id)
	if err != nil {
		return nil, err
	}
	catalog, err := stagetype.LoadCatalog(db, stageTypeIDs(stages))
	if err != nil {
		return nil, err
	}
	if err := catalog.Attach(stages); err != nil {
		return nil, err
	}
	detail.FlowStages = stages
	detail.CurrentPendingStages = stage.PendingStages(stages)
	return &detail, nil
}

func loadStages(db *gorm.DB, purchaseID types.ID) ([]stage.Stage, error) {
	stages := []stage.Stage{}
	err := db.Where("purchase_id = ?", purchaseID).Order("priority ASC, create_time ASC, id ASC").Find(&stages).Error
	if err != nil {
		return nil, err
	}
	return stages, nil
}

func stageTypeIDs(stages []stage.Stage) []int64 {
	seen := map[int64]bool{}
	var ids []int64
	for _, s := range stages {
		if !seen[s.StageTypeID] {
			seen[s.StageTypeID] = true
			ids = append(ids, s.StageTypeID)
		}
	}
	return ids
}

// UpdatePurchaseStages replaces the flow of a purchase with update. Referenced stages keep their
// progress and move to the priority of their group; stages left out of update are removed.
func UpdatePurchaseStages(ctx context.Context, id types.ID, update stage.FlowUpdate) (*PurchaseDetail, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	var ev *event.EventRecord
	txErr := persistence.ActiveDataSourceManager.GormDB(ctx).Transaction(func(tx *gorm.DB) error {
		p := Purchase{}
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			return err
		}
		existing, err := loadStages(tx, id)
		if err != nil {
			return err
		}

		now := types.CurrentTimestamp()
		changes, err := applyFlow(tx, id, update, existing, now)
		if err != nil {
			return err
		}
		if !changes.changed() {
			return nil
		}
		ev, err = event.CreateEvent(event.SourceTypePurchase, p.ID, p.Description, event.EventCategoryRelationUpdated,
			changes.properties(), changes.relations(), now, tx)
		return err
	})
	if txErr != nil {
		logrus.WithFields(logrus.Fields{"purchaseId": id.String(), "groups": len(update.Stages)}).
			Warn("purchase stages not updated: ", txErr)
		return nil, txErr
	}

	if ev != nil && event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}
	return DetailPurchase(ctx, id)
}

type flowChanges struct {
	oldLayout string
	newLayout string
	added     []stage.Stage
	removed   []stage.Stage
	catalog   stage.Catalog
}

func (c *flowChanges) changed() bool {
	return c.oldLayout != c.newLayout || len(c.added) > 0 || len(c.removed) > 0
}

func (c *flowChanges) properties() []event.UpdatedProperty {
	if c.oldLayout == c.newLayout {
		return nil
	}
	return []event.UpdatedProperty{{
		PropertyName: "FlowStages", PropertyDesc: "flow stages",
		OldValue: c.oldLayout, OldValueDesc: c.oldLayout,
		NewValue: c.newLayout, NewValueDesc: c.newLayout,
	}}
}

func (c *flowChanges) relations() []event.UpdatedRelation {
	var relations []event.UpdatedRelation
	for _, s := range c.added {
		relations = append(relations, event.UpdatedRelation{
			PropertyName: "FlowStages", PropertyDesc: "flow stages",
			TargetType: "STAGE", TargetTypeDesc: "stage",
			NewTargetId: strconv.FormatInt(s.ID, 10), NewTargetDesc: c.stageDesc(s),
		})
	}
	for _, s := range c.removed {
		relations = append(relations, event.UpdatedRelation{
			PropertyName: "FlowStages", PropertyDesc: "flow stages",
			TargetType: "STAGE", TargetTypeDesc: "stage",
			OldTargetId: strconv.FormatInt(s.ID, 10), OldTargetDesc: c.stageDesc(s),
		})
	}
	return relations
}

func (c *flowChanges) stageDesc(s stage.Stage) string {
	if t, found := c.catalog.Resolve(s); found {
		return t.Name
	}
	return ""
}

// layout renders groups of stage ids, e.g. "1|2,3".
func layout(stages []stage.Stage) string {
	var groups []string
	for _, g := range stage.GroupByPriority(stages) {
		var ids []string
		for _, id := range g.IDs() {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		groups = append(groups, strings.Join(ids, ","))
	}
	return strings.Join(groups, "|")
}

// applyFlow writes update over the existing stages of a purchase inside tx.
func applyFlow(tx *gorm.DB, purchaseID types.ID, update stage.FlowUpdate,
	existing []stage.Stage, now types.Timestamp) (*flowChanges, error) {

	byID := map[int64]stage.Stage{}
	for _, s := range existing {
		byID[s.ID] = s
	}
	for _, id := range update.ExistingIDs() {
		if _, found := byID[id]; !found {
			return nil, fmt.Errorf("stage %d: %w", id, stage.ErrForeignStageRef)
		}
	}

	catalog, err := stagetype.LoadCatalog(tx, append(update.StageTypeIDs(), stageTypeIDs(existing)...))
	if err != nil {
		return nil, err
	}

	changes := &flowChanges{oldLayout: layout(existing), catalog: catalog}
	referenced := map[int64]bool{}
	var flow []stage.Stage
	for i, g := range update.Stages {
		priority := i + 1
		for _, ref := range g {
			if !ref.IsNew() {
				s := byID[ref.ID]
				referenced[s.ID] = true
				if s.Priority != priority {
					if err := tx.Table(s.TableName()).Where("id = ?", s.ID).Update("priority", priority).Error; err != nil {
						return nil, err
					}
					s.Priority = priority
				}
				flow = append(flow, s)
				continue
			}

			s := stage.Stage{
				PurchaseID:  purchaseID,
				StageTypeID: ref.StageTypeID,
				Priority:    priority,
				CreateTime:  now,
			}
			if err := tx.Create(&s).Error; err != nil {
				return nil, err
			}
			changes.added = append(changes.added, s)
			flow = append(flow, s)
		}
	}

	var removedIDs []int64
	for _, s := range existing {
		if !referenced[s.ID] {
			changes.removed = append(changes.removed, s)
			removedIDs = append(removedIDs, s.ID)
		}
	}
	if len(removedIDs) > 0 {
		if err := tx.Where("id IN (?)", removedIDs).Delete(&stage.Stage{}).Error; err != nil {
			return nil, err
		}
	}

	changes.newLayout = layout(flow)
	return changes, nil
}

// UpdateStage records the progress of one stage. Completing a stage whose type requires a value
// fails with stage.ErrStageValueRequired while the value is blank.
func UpdateStage(ctx context.Context, id int64, u StageUpdating) (*stage.Stage, error) {
	var updated stage.Stage
	var ev *event.EventRecord
	txErr := persistence.ActiveDataSourceManager.GormDB(ctx).Transaction(func(tx *gorm.DB) error {
		s := stage.Stage{}
		if err := tx.Where("id = ?", id).First(&s).Error; err != nil {
			return err
		}
		catalog, err := stagetype.LoadCatalog(tx, []int64{s.StageTypeID})
		if err != nil {
			return err
		}
		t, _ := catalog.Lookup(s.StageTypeID)
		if u.CompletionDate != nil && t.ValueRequired && strings.TrimSpace(u.Value) == "" {
			return fmt.Errorf("stage %d of type '%s': %w", s.ID, t.Name, stage.ErrStageValueRequired)
		}

		var completion interface{}
		if u.CompletionDate != nil {
			completion = *u.CompletionDate
		}
		err = tx.Table(s.TableName()).Where("id = ?", s.ID).
			Updates(map[string]interface{}{"completion_date": completion, "value": u.Value}).Error
		if err != nil {
			return err
		}

		changes := stageProgressChanges(s, u)
		s.CompletionDate = u.CompletionDate
		s.Value = u.Value
		s.StageType = &t
		updated = s
		if len(changes) == 0 {
			return nil
		}

		p := Purchase{}
		if err := tx.Where("id = ?", s.PurchaseID).First(&p).Error; err != nil {
			return err
		}
		ev, err = event.CreateEvent(event.SourceTypePurchase, p.ID, p.Description, event.EventCategoryPropertyUpdated,
			changes, nil, types.CurrentTimestamp(), tx)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	if ev != nil && event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}
	return &updated, nil
}

func stageProgressChanges(s stage.Stage, u StageUpdating) []event.UpdatedProperty {
	var changes []event.UpdatedProperty
	oldDate, newDate := formatCompletion(s.CompletionDate), formatCompletion(u.CompletionDate)
	prefix := "Stage" + strconv.FormatInt(s.ID, 10)
	if oldDate != newDate {
		changes = append(changes, event.UpdatedProperty{
			PropertyName: prefix + ".CompletionDate", PropertyDesc: "completion date",
			OldValue: oldDate, OldValueDesc: oldDate, NewValue: newDate, NewValueDesc: newDate,
		})
	}
	if s.Value != u.Value {
		changes = append(changes, event.UpdatedProperty{
			PropertyName: prefix + ".Value", PropertyDesc: "value",
			OldValue: s.Value, OldValueDesc: s.Value, NewValue: u.Value, NewValueDesc: u.Value,
		})
	}
	return changes
}

func formatCompletion(ts *types.Timestamp) string {
	if ts == nil || ts.IsZero() {
		return ""
	}
	return ts.Time().Format(time.RFC3339)
}

// PurchaseTimeline lays out the flow of a purchase against its backend pending set.
func PurchaseTimeline(ctx context.Context, id types.ID) (*timeline.Timeline, error) {
	detail, err := DetailPurchase(ctx, id)
	if err != nil {
		return nil, err
	}
	t := timeline.Build(detail.FlowStages, detail.CurrentPendingStages, nil, time.Now())
	return &t, nil
}

func QueryPurchaseEvents(ctx context.Context, id types.ID) ([]event.EventRecord, error) {
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Where("id = ?", id).First(&Purchase{}).Error; err != nil {
		return nil, err
	}
	return event.QueryEventsFunc(event.SourceTypePurchase, id, db)
}
