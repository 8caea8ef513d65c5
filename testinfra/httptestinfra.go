package testinfra

import (
	"net/http"
	"net/http/httptest"
)

// ExecuteRequest serves req and returns the status, body and headers of the response.
func ExecuteRequest(req *http.Request, handler http.Handler) (int, string, http.Header) {
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w.Code, w.Body.String(), w.Header()
}
