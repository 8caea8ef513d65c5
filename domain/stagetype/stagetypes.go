package stagetype

import (
	"context"
	"fmt"
	"procurement/domain/stage"
	"procurement/event"
	"procurement/persistence"
	"sort"
	"strconv"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/patrickmn/go-cache"
)

var (
	// StageTypeCache holds stage type details and query results; any creation flushes it.
	StageTypeCache = cache.New(10*time.Minute, 1*time.Minute)

	CreateStageTypeFunc = CreateStageType
	QueryStageTypesFunc = QueryStageTypes
	DetailStageTypeFunc = DetailStageType
)

type StageTypeCreation struct {
	Name                 string  `json:"name" binding:"required,max=128"`
	ValueRequired        bool    `json:"value_required"`
	ResponsibleAuthority *string `json:"responsible_authority" binding:"omitempty,max=128"`
}

type StageTypeQuery struct {
	Name string `form:"name"`
}

// CreateStageType stores a new stage type. Its id is assigned by the database.
func CreateStageType(ctx context.Context, req StageTypeCreation) (*stage.StageType, error) {
	r := stage.StageType{
		Name:          req.Name,
		ValueRequired: req.ValueRequired,
		Authority:     req.ResponsibleAuthority,
		CreateTime:    types.CurrentTimestamp(),
	}

	var ev *event.EventRecord
	txErr := persistence.ActiveDataSourceManager.GormDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&r).Error; err != nil {
			return err
		}
		var err error
		ev, err = event.CreateEvent(event.SourceTypeStageType, types.ID(r.ID), r.Name, event.EventCategoryCreated,
			nil, nil, r.CreateTime, tx)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	StageTypeCache.Flush()

	if event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}
	return &r, nil
}

func QueryStageTypes(ctx context.Context, query StageTypeQuery) ([]stage.StageType, error) {
	key := "query:" + query.Name
	if cached, found := StageTypeCache.Get(key); found {
		return append([]stage.StageType{}, cached.([]stage.StageType)...), nil
	}

	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if query.Name != "" {
		db = db.Where("name LIKE ?", "%"+query.Name+"%")
	}
	r := []stage.StageType{}
	if err := db.Order("name ASC").Find(&r).Error; err != nil {
		return nil, err
	}
	StageTypeCache.SetDefault(key, r)
	return append([]stage.StageType{}, r...), nil
}

func DetailStageType(ctx context.Context, id int64) (*stage.StageType, error) {
	key := "id:" + strconv.FormatInt(id, 10)
	if cached, found := StageTypeCache.Get(key); found {
		r := cached.(stage.StageType)
		return &r, nil
	}

	r := stage.StageType{}
	if err := persistence.ActiveDataSourceManager.GormDB(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	StageTypeCache.SetDefault(key, r)
	return &r, nil
}

// LoadCatalog loads the given stage types inside db, which may be a transaction.
// Every id must exist.
func LoadCatalog(db *gorm.DB, ids []int64) (stage.Catalog, error) {
	if len(ids) == 0 {
		return stage.Catalog{}, nil
	}
	var found []stage.StageType
	if err := db.Where("id IN (?)", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	catalog := stage.NewCatalog(found)

	var missing []int64
	seen := map[int64]bool{}
	for _, id := range ids {
		if _, ok := catalog.Lookup(id); !ok && !seen[id] {
			seen[id] = true
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		return nil, fmt.Errorf("stage types %v: %w", missing, stage.ErrStageTypeNotFound)
	}
	return catalog, nil
}
