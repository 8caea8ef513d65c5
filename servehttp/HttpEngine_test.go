package servehttp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"procurement/domain/purchase"
	"procurement/domain/stage"
	"procurement/domain/stagetype"
	"procurement/domain/timeline"
	"procurement/servehttp"
	"procurement/testinfra"
	"testing"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
)

func TestNewEngine(t *testing.T) {
	RegisterTestingT(t)

	tracer := mocktracer.New()
	opentracing.SetGlobalTracer(tracer)
	defer opentracing.SetGlobalTracer(opentracing.NoopTracer{})

	engine := servehttp.NewEngine()

	t.Run("should answer health checks with the service name", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		status, body, _ := testinfra.ExecuteRequest(req, engine)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(Equal("procurement"))
	})

	t.Run("should route purchase and stage type requests through the error handling", func(t *testing.T) {
		tracer.Reset()
		purchase.PurchaseTimelineFunc = func(ctx context.Context, id types.ID) (*timeline.Timeline, error) {
			Expect(opentracing.SpanFromContext(ctx)).ToNot(BeNil())
			return nil, stage.ErrStageTypeNotFound
		}
		req := httptest.NewRequest(http.MethodGet, purchase.PathPurchases+"/1/timeline", nil)
		status, body, _ := testinfra.ExecuteRequest(req, engine)
		Expect(status).To(Equal(http.StatusNotFound))
		Expect(body).To(MatchJSON(`{"code":"stage_type.not_found", "message":"stage type not found", "data":null}`))

		finished := tracer.FinishedSpans()
		Expect(len(finished)).To(Equal(1))
		Expect(finished[0].OperationName).To(Equal("GET /v1/purchases/1/timeline"))

		req = httptest.NewRequest(http.MethodGet, stagetype.PathStageTypes+"/0", nil)
		status, _, _ = testinfra.ExecuteRequest(req, engine)
		Expect(status).To(Equal(http.StatusBadRequest))
	})
}
