package bizerror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"procurement/common"
	"procurement/domain/stage"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

const CodeInternalServerError = "common.internal_server_error"

func ErrorHandling() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handle(c)
		c.Next()
	}
}

func handle(c *gin.Context) {
	if ret := recover(); ret != nil {
		err, ok := ret.(error)
		if !ok {
			err = fmt.Errorf("%v", ret)
		}
		HandleError(c, err)
	} else {
		if err := c.Errors.Last(); err != nil {
			HandleError(c, err)
		}
	}
}

func HandleError(c *gin.Context, err error) {
	logrus.WithFields(logrus.Fields{"method": c.Request.Method, "path": c.Request.URL.Path}).Error(err)

	genericErr := err
	var ginErr *gin.Error
	if errors.As(err, &ginErr) {
		genericErr = ginErr.Err
	}

	status, body := translate(genericErr)
	c.AbortWithStatusJSON(status, body)
}

func translate(err error) (int, *common.ErrorBody) {
	if bizErr, ok := err.(BizError); ok {
		respond := bizErr.Respond()
		return respond.Status, &common.ErrorBody{Code: respond.Code, Message: respond.Message, Data: respond.Data}
	}

	// bad request: io.EOF (no body).
	if errors.Is(err, io.EOF) {
		return http.StatusBadRequest, &common.ErrorBody{Code: "bad_request.body_not_found", Message: "body not found"}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return http.StatusBadRequest, &common.ErrorBody{Code: "bad_request.invalid_body_format", Message: "invalid body format", Data: syntaxErr.Error()}
	}
	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, &common.ErrorBody{Code: "bad_request.validation_failed", Message: "validation failed", Data: validationErr.Error()}
	}

	switch {
	case errors.Is(err, stage.ErrEmptyFlowGroup), errors.Is(err, stage.ErrInvalidStageRef),
		errors.Is(err, stage.ErrDuplicateStageRef), errors.Is(err, stage.ErrForeignStageRef):
		return http.StatusBadRequest, &common.ErrorBody{Code: "purchase.invalid_flow", Message: err.Error()}
	case errors.Is(err, stage.ErrStageValueRequired):
		return http.StatusBadRequest, &common.ErrorBody{Code: "stage.value_required", Message: err.Error()}
	case errors.Is(err, stage.ErrStageTypeNotFound):
		return http.StatusNotFound, &common.ErrorBody{Code: "stage_type.not_found", Message: err.Error()}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, &common.ErrorBody{Code: "common.record_not_found", Message: "record not found"}
	}

	return http.StatusInternalServerError, &common.ErrorBody{Code: CodeInternalServerError, Message: err.Error()}
}
