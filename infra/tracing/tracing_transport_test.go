package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/mocktracer"
)

type AlwaysFailedTransport struct {
}

func (t *AlwaysFailedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return nil, errors.New("mock error")
}

func TestTracingTransport(t *testing.T) {
	RegisterTestingT(t)

	tracer := mocktracer.New()
	opentracing.SetGlobalTracer(tracer)

	var propagated http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		propagated = r.Header.Clone()
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	t.Run("no parent span", func(t *testing.T) {
		tracer.Reset()

		client := &http.Client{Transport: &TracingTransport{}}
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/ok", nil)
		Expect(err).To(BeNil())
		res, err := client.Do(req)
		Expect(err).To(BeNil())
		Expect(res.StatusCode).To(Equal(http.StatusOK))

		Expect(len(tracer.FinishedSpans())).To(BeZero())
	})

	t.Run("child trace", func(t *testing.T) {
		tracer.Reset()

		client := &http.Client{Transport: &TracingTransport{Transport: http.DefaultTransport}}
		req, err := http.NewRequest(http.MethodPatch, ts.URL+"/ok", nil)
		Expect(err).To(BeNil())

		clientSpan := tracer.StartSpan("client")
		req = req.WithContext(opentracing.ContextWithSpan(context.Background(), clientSpan))

		res, err := client.Do(req)
		Expect(err).To(BeNil())
		Expect(res.StatusCode).To(Equal(http.StatusOK))
		clientSpan.Finish()

		spans := tracer.FinishedSpans()
		Expect(len(spans)).To(Equal(2))

		s0 := spans[1]
		Expect(s0.OperationName).To(Equal("client"))
		Expect(s0.ParentID).To(BeZero())

		s1 := spans[0]
		Expect(s1.OperationName).To(Equal("PATCH /ok"))
		Expect(s1.ParentID).To(Equal(s0.SpanContext.SpanID))
		Expect(s1.SpanContext.TraceID).To(Equal(s0.SpanContext.TraceID))
		Expect(s1.Tags()).To(Equal(map[string]interface{}{
			"span.kind":        ext.SpanKindEnum("client"),
			"http.url":         ts.URL + "/ok",
			"http.method":      "PATCH",
			"http.status_code": uint16(200),
			"error":            false,
		}))

		// mocktracer propagates the span ids as headers
		Expect(propagated.Get("Mockpfx-Ids-Spanid")).ToNot(BeEmpty())
		Expect(req.Header.Get("Mockpfx-Ids-Spanid")).To(BeEmpty())
	})

	t.Run("child trace with error status", func(t *testing.T) {
		tracer.Reset()

		client := &http.Client{Transport: &TracingTransport{Transport: http.DefaultTransport}}
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/bad", nil)
		Expect(err).To(BeNil())

		clientSpan := tracer.StartSpan("client")
		req = req.WithContext(opentracing.ContextWithSpan(context.Background(), clientSpan))

		res, err := client.Do(req)
		Expect(err).To(BeNil())
		Expect(res.StatusCode).To(Equal(http.StatusBadRequest))
		clientSpan.Finish()

		spans := tracer.FinishedSpans()
		Expect(len(spans)).To(Equal(2))
		Expect(spans[0].Tag("http.status_code")).To(Equal(uint16(400)))
		Expect(spans[0].Tag("error")).To(Equal(true))
	})

	t.Run("child trace with transport failure", func(t *testing.T) {
		tracer.Reset()

		client := &http.Client{Transport: &TracingTransport{Transport: &AlwaysFailedTransport{}}}
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/ok", nil)
		Expect(err).To(BeNil())

		clientSpan := tracer.StartSpan("client")
		req = req.WithContext(opentracing.ContextWithSpan(context.Background(), clientSpan))

		res, err := client.Do(req)
		Expect(res).To(BeNil())
		Expect(err).ToNot(BeNil())
		Expect(err.Error()).To(ContainSubstring("mock error"))
		clientSpan.Finish()

		spans := tracer.FinishedSpans()
		Expect(len(spans)).To(Equal(2))
		Expect(spans[0].Tag("error")).To(Equal(true))
		Expect(spans[0].Tag("http.status_code")).To(BeNil())
	})
}
