package stagetype

import (
	"errors"
	"net/http"
	"procurement/bizerror"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathStageTypes = "/v1/stage-types"
)

func RegisterStageTypesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathStageTypes, middleWares...)
	g.POST("", handleCreateStageType)
	g.GET("", handleQueryStageTypes)
	g.GET(":id", handleDetailStageType)
}

func handleCreateStageType(c *gin.Context) {
	req := StageTypeCreation{}
	err := c.ShouldBindBodyWith(&req, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateStageTypeFunc(c.Request.Context(), req)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}

func handleQueryStageTypes(c *gin.Context) {
	query := StageTypeQuery{}
	if err := c.ShouldBindQuery(&query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	records, err := QueryStageTypesFunc(c.Request.Context(), query)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleDetailStageType(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	record, err := DetailStageTypeFunc(c.Request.Context(), id)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}
