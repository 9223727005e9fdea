package endpoints

import (
	"fmt"
	"math"
	"net/http"

	"github.com/goccy/go-json"

	"machine-metrics/internal/domain"
	"machine-metrics/internal/util"
)

type MetricsAllRequest struct {
	EachCount uint `json:"each_count"`
}

func (r *MetricsAllRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		EachCount *uint `json:"each_count"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.EachCount == nil {
		return fmt.Errorf("%w: missing \"each_count\"", ErrInvalidRequestBody)
	}
	r.EachCount = *raw.EachCount
	return nil
}

type MetricsAllResponse struct {
	Cpus  []domain.MetricPoint         `json:"cpus"`
	Cpu   map[int][]domain.MetricPoint `json:"cpu"`
	Mem   []domain.MetricPoint         `json:"mem"`
	NetTx []domain.MetricPoint         `json:"net_tx"`
	NetRx []domain.MetricPoint         `json:"net_rx"`
}

type MetricsRequestItem struct {
	Count uint             `json:"count"`
	Name  domain.MetricKey `json:"name"`
}

// UnmarshalJSON requires both fields. A missing name would otherwise decode
// as the zero key, which is a valid series.
func (i *MetricsRequestItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Count *uint             `json:"count"`
		Name  *domain.MetricKey `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Count == nil:
		return fmt.Errorf("%w: missing \"count\"", ErrInvalidRequestBody)
	case raw.Name == nil:
		return fmt.Errorf("%w: missing \"name\"", ErrInvalidRequestBody)
	}
	i.Count = *raw.Count
	i.Name = *raw.Name
	return nil
}

type Metrics struct {
	Response APIResponse
	logger   *util.MetricsLogger
	cache    domain.MetricCache
}

func (m *Metrics) Init(cache domain.MetricCache, webSlogger *util.MetricsLogger) {
	m.cache = cache
	m.logger = webSlogger
}

// GetMachineMetricsAllHandler answers with every series, each_count points
// per series. Per-core series are discovered by probing core ids upward from
// zero until the first id without history.
func (m *Metrics) GetMachineMetricsAllHandler(w http.ResponseWriter, r *http.Request) {
	if !m.checkMethod(w, r) {
		return
	}

	var req MetricsAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.logger.LogEvent(util.LOG_LEVEL_ERROR, "Occured while unmarshalling JSON Body. Err -", err)
		m.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidRequestBody, http.StatusBadRequest)
		return
	}
	count := clampCount(req.EachCount)

	resp := MetricsAllResponse{
		Cpus:  m.readOrEmpty(domain.CPUsUsage, count),
		Cpu:   make(map[int][]domain.MetricPoint),
		Mem:   m.readOrEmpty(domain.MemUsage, count),
		NetTx: m.readOrEmpty(domain.NetTxUsage, count),
		NetRx: m.readOrEmpty(domain.NetRxUsage, count),
	}
	for core := 0; ; core++ {
		points, ok := m.cache.Read(domain.CPUUsage(core), count)
		if !ok {
			break
		}
		resp.Cpu[core] = points
	}

	m.Response.WritePayload(w, resp)
}

// GetMachineMetricsHandler answers a batch of (name, count) items with one
// point array per item, in request order.
func (m *Metrics) GetMachineMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if !m.checkMethod(w, r) {
		return
	}

	var items []MetricsRequestItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		m.logger.LogEvent(util.LOG_LEVEL_ERROR, "Occured while unmarshalling JSON Body. Err -", err)
		m.Response.WriteErrorResponseWithStatusCode(w, ErrInvalidRequestBody, http.StatusBadRequest)
		return
	}

	data := make([][]domain.MetricPoint, 0, len(items))
	for _, item := range items {
		data = append(data, m.readOrEmpty(item.Name, clampCount(item.Count)))
	}

	m.Response.WritePayload(w, data)
}

func (m *Metrics) checkMethod(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodPost {
		return true
	}
	m.logger.LogEvent(util.LOG_LEVEL_ERROR, "Method Not Allowed. Only POST requests are supported", http.StatusMethodNotAllowed)
	m.Response.WriteErrorResponseWithStatusCode(w, ErrMethodNotAllowed, http.StatusMethodNotAllowed)
	return false
}

func (m *Metrics) readOrEmpty(key domain.MetricKey, count int) []domain.MetricPoint {
	points, ok := m.cache.Read(key, count)
	if !ok {
		return []domain.MetricPoint{}
	}
	return points
}

func clampCount(n uint) int {
	if n > math.MaxInt {
		return math.MaxInt
	}
	return int(n)
}
