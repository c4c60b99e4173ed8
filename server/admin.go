package server

import (
	"net/http"
)

// HandleMetrics 输出同步中心的运行指标
// GET /metrics
func (a *App) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"subscribers":  a.Hub.SubscriberCount(),
		"players":      a.World.PlayerCount(),
		"ballPosition": a.World.BallPosition(),
		"metrics":      a.Hub.Metrics().Snapshot(),
	}
	writeJSON(w, http.StatusOK, payload)
}

// HandleHealthz 存活探针
func HandleHealthz(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("ok"))
}
