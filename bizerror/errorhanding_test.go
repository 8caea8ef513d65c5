package bizerror_test

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"procurement/bizerror"
	"procurement/domain/stage"
	"procurement/testinfra"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
)

func TestErrorHandling(t *testing.T) {
	RegisterTestingT(t)

	var current interface{}
	router := gin.New()
	router.Use(bizerror.ErrorHandling())
	router.GET("/panic", func(c *gin.Context) {
		panic(current)
	})
	router.GET("/gin-error", func(c *gin.Context) {
		_ = c.Error(current.(error))
	})
	router.POST("/bind", func(c *gin.Context) {
		body := struct {
			Name string `json:"name" binding:"required"`
		}{}
		if err := c.ShouldBindJSON(&body); err != nil {
			panic(err)
		}
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		name   string
		err    interface{}
		status int
		body   string
	}{
		{"bad param", &bizerror.ErrBadParam{Cause: errors.New("invalid id 'x'")}, http.StatusBadRequest,
			`{"code":"common.bad_param","message":"invalid id 'x'","data":null}`},
		{"bad param without cause", &bizerror.ErrBadParam{}, http.StatusBadRequest,
			`{"code":"common.bad_param","message":"common.bad_param","data":null}`},
		{"missing body", io.EOF, http.StatusBadRequest,
			`{"code":"bad_request.body_not_found","message":"body not found","data":null}`},
		{"invalid flow", fmt.Errorf("group 1: %w", stage.ErrEmptyFlowGroup), http.StatusBadRequest,
			`{"code":"purchase.invalid_flow","message":"group 1: flow group is empty","data":null}`},
		{"foreign stage", fmt.Errorf("stage 3: %w", stage.ErrForeignStageRef), http.StatusBadRequest,
			`{"code":"purchase.invalid_flow","message":"stage 3: stage does not belong to the purchase","data":null}`},
		{"value required", stage.ErrStageValueRequired, http.StatusBadRequest,
			`{"code":"stage.value_required","message":"stage type requires a value before completion","data":null}`},
		{"stage type not found", fmt.Errorf("stage types [7]: %w", stage.ErrStageTypeNotFound), http.StatusNotFound,
			`{"code":"stage_type.not_found","message":"stage types [7]: stage type not found","data":null}`},
		{"record not found", gorm.ErrRecordNotFound, http.StatusNotFound,
			`{"code":"common.record_not_found","message":"record not found","data":null}`},
		{"unknown error", errors.New("some error"), http.StatusInternalServerError,
			`{"code":"common.internal_server_error","message":"some error","data":null}`},
		{"non error value", "boom", http.StatusInternalServerError,
			`{"code":"common.internal_server_error","message":"boom","data":null}`},
	}

	for _, tc := range cases {
		t.Run("should translate "+tc.name, func(t *testing.T) {
			current = tc.err
			req := httptest.NewRequest(http.MethodGet, "/panic", nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(tc.status))
			Expect(body).To(MatchJSON(tc.body))
		})
	}

	t.Run("should translate errors attached to the gin context", func(t *testing.T) {
		current = gorm.ErrRecordNotFound
		req := httptest.NewRequest(http.MethodGet, "/gin-error", nil)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusNotFound))
		Expect(body).To(MatchJSON(`{"code":"common.record_not_found","message":"record not found","data":null}`))
	})

	t.Run("should translate binding errors", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/bind", nil)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(body).To(MatchJSON(`{"code":"bad_request.body_not_found","message":"body not found","data":null}`))

		req = httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader("{x"))
		status, body, _ = testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(body).To(ContainSubstring(`"code":"bad_request.invalid_body_format"`))

		req = httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader("{}"))
		status, body, _ = testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(body).To(ContainSubstring(`"code":"bad_request.validation_failed"`))
	})
}
