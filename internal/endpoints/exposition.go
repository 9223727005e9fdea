package endpoints

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"machine-metrics/internal/domain"
	"machine-metrics/internal/util"
)

const expositionContentType = "text/plain; version=0.0.4; charset=utf-8"

type familyDesc struct {
	name string
	help string
	typ  dto.MetricType
}

var families = map[domain.MetricKind]familyDesc{
	domain.KindCPUsUsage:  {"machine_cpus_usage_ratio", "Aggregate CPU utilization across all cores.", dto.MetricType_GAUGE},
	domain.KindCPUUsage:   {"machine_cpu_usage_ratio", "CPU utilization of a single core.", dto.MetricType_GAUGE},
	domain.KindMemUsage:   {"machine_mem_usage_ratio", "Used memory over total memory.", dto.MetricType_GAUGE},
	domain.KindNetTxUsage: {"machine_net_tx_bytes_total", "Bytes transmitted on the sampled interface since boot.", dto.MetricType_COUNTER},
	domain.KindNetRxUsage: {"machine_net_rx_bytes_total", "Bytes received on the sampled interface since boot.", dto.MetricType_COUNTER},
}

// Exposition renders the newest point of every series in the Prometheus
// text format.
type Exposition struct {
	Response APIResponse
	logger   *util.MetricsLogger
	cache    domain.MetricCache
	iface    string
}

func (e *Exposition) Init(cache domain.MetricCache, iface string, webSlogger *util.MetricsLogger) {
	e.cache = cache
	e.iface = iface
	e.logger = webSlogger
}

func (e *Exposition) GetExpositionHandler(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	for _, mf := range e.collect() {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			e.logger.LogEvent(util.LOG_LEVEL_ERROR, "While rendering metric family", mf.GetName(), "Err - ", err)
			e.Response.WriteErrorResponse(w, fmt.Errorf("%w: %v", ErrExpositionFailed, err))
			return
		}
	}

	w.Header().Set("Content-Type", expositionContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

// collect builds one family per kind that has history. Keys arrive sorted
// by kind, so families come out in a stable order.
func (e *Exposition) collect() []*dto.MetricFamily {
	var out []*dto.MetricFamily
	byKind := make(map[domain.MetricKind]*dto.MetricFamily)

	for _, key := range e.cache.Keys() {
		points, ok := e.cache.Read(key, 1)
		if !ok || len(points) == 0 {
			continue
		}
		desc, known := families[key.Kind]
		if !known {
			continue
		}

		mf, seen := byKind[key.Kind]
		if !seen {
			mf = &dto.MetricFamily{
				Name: proto.String(desc.name),
				Help: proto.String(desc.help),
				Type: desc.typ.Enum(),
			}
			byKind[key.Kind] = mf
			out = append(out, mf)
		}
		mf.Metric = append(mf.Metric, e.metric(key, desc.typ, points[0]))
	}
	return out
}

func (e *Exposition) metric(key domain.MetricKey, typ dto.MetricType, point domain.MetricPoint) *dto.Metric {
	m := &dto.Metric{
		TimestampMs: proto.Int64(int64(point.Timestamp) * 1000),
	}

	switch key.Kind {
	case domain.KindCPUUsage:
		m.Label = []*dto.LabelPair{{Name: proto.String("core"), Value: proto.String(strconv.Itoa(key.Core))}}
	case domain.KindNetTxUsage, domain.KindNetRxUsage:
		m.Label = []*dto.LabelPair{{Name: proto.String("interface"), Value: proto.String(e.iface)}}
	}

	if typ == dto.MetricType_COUNTER {
		m.Counter = &dto.Counter{Value: proto.Float64(point.Value)}
	} else {
		m.Gauge = &dto.Gauge{Value: proto.Float64(point.Value)}
	}
	return m
}
