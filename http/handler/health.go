package handler

import (
	"net/http"

	"github.com/leeforge/imagekit/http/responder"
)

// HealthResponse /healthz 的响应
type HealthResponse struct {
	Status  string   `json:"status"`
	Formats []string `json:"formats"`
	Pool    PoolInfo `json:"pool"`
	Queue   *int     `json:"queue,omitempty"`
}

// PoolInfo 处理池统计
type PoolInfo struct {
	Size      int   `json:"size"`
	Active    int64 `json:"active"`
	Peak      int64 `json:"peak"`
	Completed int64 `json:"completed"`
	TimedOut  int64 `json:"timedOut"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	stats := h.transformer.Pool().Stats()
	resp := HealthResponse{
		Status:  "ok",
		Formats: h.transformer.Codecs().Formats(),
		Pool: PoolInfo{
			Size:      stats.Size,
			Active:    stats.Active,
			Peak:      stats.Peak,
			Completed: stats.Completed,
			TimedOut:  stats.TimedOut,
		},
	}
	if h.variants != nil {
		pending := h.variants.GetQueueSize()
		resp.Queue = &pending
	}
	responder.OK(w, r, resp)
}
