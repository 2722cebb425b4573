package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/chat/messages/{sessionId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/chat/messages/{sessionId}", "404"))
	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodGet, "/api/chat/messages/"+id, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/chat/messages/{sessionId}", "404"))
	if after-before != 2 {
		t.Errorf("http_requests_total delta = %v, want 2", after-before)
	}
}
