package httpapi

import (
	"net/http"

	"mamiland-backend-go/internal/metrics"
	"mamiland-backend-go/internal/services"

	"github.com/gorilla/websocket"
)

type MetricsHistoryResponse struct {
	Items []services.SystemSample `json:"items"`
}

func (s *Server) MetricsHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 120)
	if limit <= 0 {
		limit = 120
	}
	if limit > 500 {
		limit = 500
	}
	items, err := services.LatestSystemSamples(r.Context(), s.DB, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, MetricsHistoryResponse{Items: items})
}

// MetricsSocket streams live system samples to an authenticated admin.
func (s *Server) MetricsSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: s.allowedOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.MetricsHub.Add(conn)
	metrics.MetricsSockets.Inc()
	defer func() {
		metrics.MetricsSockets.Dec()
		s.MetricsHub.Remove(conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// allowedOrigin accepts same-origin requests and the configured CORS origins.
func (s *Server) allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.Config.CorsOrigins) == 0 {
		return true
	}
	for _, allowed := range s.Config.CorsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
