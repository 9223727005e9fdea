package endpoints

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machine-metrics/internal/cache"
	"machine-metrics/internal/domain"
	"machine-metrics/internal/util"
)

func newFilledCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(4, 5)
	require.NoError(t, err)

	for ts := uint64(1); ts <= 7; ts++ {
		v := float64(ts)
		c.Push(domain.CPUsUsage, domain.MetricPoint{Timestamp: ts, Value: v / 10})
		c.Push(domain.CPUUsage(0), domain.MetricPoint{Timestamp: ts, Value: v / 20})
		c.Push(domain.CPUUsage(1), domain.MetricPoint{Timestamp: ts, Value: v / 30})
		c.Push(domain.MemUsage, domain.MetricPoint{Timestamp: ts, Value: 0.5})
		c.Push(domain.NetTxUsage, domain.MetricPoint{Timestamp: ts, Value: v * 1000})
	}
	return c
}

func post(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest("POST", "/", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestGetMachineMetricsAllHandler(t *testing.T) {
	metricsHandler := &Metrics{}
	metricsHandler.Init(newFilledCache(t), &util.MetricsLogger{})

	rr := post(t, metricsHandler.GetMachineMetricsAllHandler, `{"each_count": 2}`)

	assert.Equal(t, http.StatusOK, rr.Code, "Expected status OK")
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp MetricsAllResponse
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &resp))

	assert.Equal(t, []domain.MetricPoint{{Timestamp: 6, Value: 0.6}, {Timestamp: 7, Value: 0.7}}, resp.Cpus)
	assert.Len(t, resp.Cpu, 2, "cores 0 and 1 have history")
	assert.Equal(t, []domain.MetricPoint{{Timestamp: 6, Value: 0.3}, {Timestamp: 7, Value: 0.35}}, resp.Cpu[0])
	assert.Len(t, resp.Cpu[1], 2)
	assert.Len(t, resp.Mem, 2)
	assert.Equal(t, 7000.0, resp.NetTx[1].Value)

	// series without history are empty arrays, never null
	assert.Contains(t, string(body), `"net_rx":[]`)
	assert.Contains(t, string(body), `"cpu":{"0":`)
}

func TestGetMachineMetricsAllHandler_Errors(t *testing.T) {
	metricsHandler := &Metrics{}
	metricsHandler.Init(newFilledCache(t), &util.MetricsLogger{})
	var apiResponse APIResponse

	// case 1: invalid JSON
	rr := post(t, metricsHandler.GetMachineMetricsAllHandler, "invalid json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apiResponse))
	assert.False(t, apiResponse.Status)
	assert.Equal(t, INVALID_REQUEST_BODY, apiResponse.ErrorCode)
	assert.Contains(t, apiResponse.Error, ErrInvalidRequestBody.Error())

	// case 2: wrong type for each_count
	rr = post(t, metricsHandler.GetMachineMetricsAllHandler, `{"each_count": "ten"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// case 3: each_count missing
	for _, body := range []string{`{}`, `{"each_count": null}`} {
		rr = post(t, metricsHandler.GetMachineMetricsAllHandler, body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apiResponse))
		assert.Equal(t, INVALID_REQUEST_BODY, apiResponse.ErrorCode, body)
	}

	// case 4: wrong method
	req, _ := http.NewRequest("GET", "/", nil)
	rr = httptest.NewRecorder()
	metricsHandler.GetMachineMetricsAllHandler(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apiResponse))
	assert.Equal(t, METHOD_NOT_ALLOWED, apiResponse.ErrorCode)
}

func TestGetMachineMetricsAllHandler_EmptyCache(t *testing.T) {
	c, err := cache.New(1, 1)
	require.NoError(t, err)
	metricsHandler := &Metrics{}
	metricsHandler.Init(c, &util.MetricsLogger{})

	rr := post(t, metricsHandler.GetMachineMetricsAllHandler, `{"each_count": 10}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"cpus":[],"cpu":{},"mem":[],"net_tx":[],"net_rx":[]}`, rr.Body.String())
}

func TestGetMachineMetricsHandler(t *testing.T) {
	metricsHandler := &Metrics{}
	metricsHandler.Init(newFilledCache(t), &util.MetricsLogger{})

	body := `[
		{"count": 1, "name": "mem_usage"},
		{"count": 3, "name": {"cpu_usage": {"id": 1}}},
		{"count": 4, "name": "net_rx_usage"},
		{"count": 0, "name": "cpus_usage"},
		{"count": 100, "name": "net_tx_usage"},
		{"count": 2, "name": {"cpu_usage": {"id": 9}}}
	]`
	rr := post(t, metricsHandler.GetMachineMetricsHandler, body)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp [][]domain.MetricPoint
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp, 6, "one entry per request item")

	assert.Equal(t, []domain.MetricPoint{{Timestamp: 7, Value: 0.5}}, resp[0])
	require.Len(t, resp[1], 3)
	assert.Equal(t, uint64(5), resp[1][0].Timestamp)
	assert.Equal(t, uint64(7), resp[1][2].Timestamp)
	assert.Empty(t, resp[2], "unseen series")
	assert.Empty(t, resp[3], "count zero")
	assert.Len(t, resp[4], 5, "clamped to ring capacity")
	assert.Empty(t, resp[5])

	assert.True(t, strings.HasPrefix(rr.Body.String(), "[["))
}

func TestGetMachineMetricsHandler_Errors(t *testing.T) {
	metricsHandler := &Metrics{}
	metricsHandler.Init(newFilledCache(t), &util.MetricsLogger{})
	var apiResponse APIResponse

	for _, body := range []string{
		`[{"count": 1, "name": "disk_usage"}]`,
		`[{"count": 1, "name": {"cpu_usage": {"id": "x"}}}]`,
		`{"count": 1, "name": "mem_usage"}`,
		`not json`,
		`[{"count": 2}]`,
		`[{"name": "mem_usage"}]`,
		`[{"count": 2, "name": null}]`,
		`[{"count": 2, "name": {"cpu_usage": {}}}]`,
		`[{"count": 2, "name": {"cpu_usage": null}}]`,
		`[{"count": 1, "name": "mem_usage"}, {"count": 1}]`,
	} {
		rr := post(t, metricsHandler.GetMachineMetricsHandler, body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apiResponse))
		assert.Equal(t, INVALID_REQUEST_BODY, apiResponse.ErrorCode, body)
	}

	rr := post(t, metricsHandler.GetMachineMetricsHandler, `[]`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestTokenAuthMiddleware(t *testing.T) {
	tokens := map[string]struct{}{"secret": {}}
	reached := false
	handler := TokenAuthMiddleware(tokens, &util.MetricsLogger{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer secret", http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"unknown token", "Bearer other", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"lowercase scheme", "bearer secret", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached = false
			req, _ := http.NewRequest("POST", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.status == http.StatusNoContent, reached)
			if tt.status == http.StatusUnauthorized {
				var apiResponse APIResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apiResponse))
				assert.Equal(t, API_UNAUTHORIZED, apiResponse.ErrorCode)
			}
		})
	}
}

func TestGetExpositionHandler(t *testing.T) {
	expositionHandler := &Exposition{}
	expositionHandler.Init(newFilledCache(t), "eth0", &util.MetricsLogger{})

	req, _ := http.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	expositionHandler.GetExpositionHandler(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, expositionContentType, rr.Header().Get("Content-Type"))

	body := rr.Body.String()
	assert.Contains(t, body, "# TYPE machine_cpus_usage_ratio gauge")
	assert.Contains(t, body, "machine_cpus_usage_ratio 0.7 7000")
	assert.Contains(t, body, `machine_cpu_usage_ratio{core="0"} 0.35 7000`)
	assert.Contains(t, body, `machine_cpu_usage_ratio{core="1"}`)
	assert.Contains(t, body, "machine_mem_usage_ratio 0.5 7000")
	assert.Contains(t, body, "# TYPE machine_net_tx_bytes_total counter")
	assert.Contains(t, body, `machine_net_tx_bytes_total{interface="eth0"} 7000 7000`)
	assert.NotContains(t, body, "machine_net_rx_bytes_total")

	assert.Less(t, strings.Index(body, "machine_cpus_usage_ratio"), strings.Index(body, "machine_mem_usage_ratio"),
		"families follow kind order")
}

func TestGetHealthHandler(t *testing.T) {
	healthHandler := &Health{}
	healthHandler.Init(newFilledCache(t))

	req, _ := http.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	healthHandler.GetHealthHandler(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":true,"value":{"series":5},"error_code":303000}`, rr.Body.String())
}
