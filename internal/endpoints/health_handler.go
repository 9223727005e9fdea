package endpoints

import (
	"net/http"

	"machine-metrics/internal/domain"
)

type HealthStatus struct {
	Series int `json:"series"`
}

type Health struct {
	Response APIResponse
	cache    domain.MetricCache
}

func (h *Health) Init(cache domain.MetricCache) {
	h.cache = cache
}

func (h *Health) GetHealthHandler(w http.ResponseWriter, r *http.Request) {
	h.Response.WriteResultResponse(w, HealthStatus{Series: len(h.cache.Keys())})
}
