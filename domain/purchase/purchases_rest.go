package purchase

import (
	"errors"
	"net/http"
	"procurement/bizerror"
	"procurement/domain/stage"
	"strconv"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathPurchases = "/v1/purchases"
	PathStages    = "/v1/stages"
)

func RegisterPurchasesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathPurchases, middleWares...)
	g.POST("", handleCreatePurchase)
	g.GET("", handleQueryPurchases)
	g.GET(":id", handleDetailPurchase)
	g.PATCH(":id", handleUpdatePurchaseStages)
	g.GET(":id/timeline", handlePurchaseTimeline)
	g.GET(":id/events", handleQueryPurchaseEvents)

	s := r.Group(PathStages, middleWares...)
	s.PATCH(":id", handleUpdateStage)
}

func handleCreatePurchase(c *gin.Context) {
	req := PurchaseCreation{}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	detail, err := CreatePurchaseFunc(c.Request.Context(), req)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, detail)
}

func handleQueryPurchases(c *gin.Context) {
	query := PurchaseQuery{}
	if err := c.ShouldBindQuery(&query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	purchases, err := QueryPurchasesFunc(c.Request.Context(), query)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, purchases)
}

func handleDetailPurchase(c *gin.Context) {
	detail, err := DetailPurchaseFunc(c.Request.Context(), purchaseIDParam(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleUpdatePurchaseStages(c *gin.Context) {
	id := purchaseIDParam(c)
	req := stage.FlowUpdate{}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	detail, err := UpdatePurchaseStagesFunc(c.Request.Context(), id, req)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handlePurchaseTimeline(c *gin.Context) {
	t, err := PurchaseTimelineFunc(c.Request.Context(), purchaseIDParam(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, t)
}

func handleQueryPurchaseEvents(c *gin.Context) {
	records, err := QueryPurchaseEventsFunc(c.Request.Context(), purchaseIDParam(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleUpdateStage(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	req := StageUpdating{}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	s, err := UpdateStageFunc(c.Request.Context(), id, req)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, s)
}

func purchaseIDParam(c *gin.Context) types.ID {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	return types.ID(id)
}
