package domain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

type MetricKind uint8

const (
	KindCPUsUsage MetricKind = iota
	KindCPUUsage
	KindMemUsage
	KindNetTxUsage
	KindNetRxUsage
)

var kindNames = [...]string{
	KindCPUsUsage:  "cpus_usage",
	KindCPUUsage:   "cpu_usage",
	KindMemUsage:   "mem_usage",
	KindNetTxUsage: "net_tx_usage",
	KindNetRxUsage: "net_rx_usage",
}

func (k MetricKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown(" + strconv.Itoa(int(k)) + ")"
}

func parseKind(name string) (MetricKind, bool) {
	for i, n := range kindNames {
		if n == name {
			return MetricKind(i), true
		}
	}
	return 0, false
}

// MetricKey identifies one time series. Core is only meaningful for
// KindCPUUsage and is always zero for the other kinds, so two keys are the
// same series exactly when they compare equal.
type MetricKey struct {
	Kind MetricKind
	Core int
}

var (
	CPUsUsage  = MetricKey{Kind: KindCPUsUsage}
	MemUsage   = MetricKey{Kind: KindMemUsage}
	NetTxUsage = MetricKey{Kind: KindNetTxUsage}
	NetRxUsage = MetricKey{Kind: KindNetRxUsage}
)

func CPUUsage(core int) MetricKey {
	return MetricKey{Kind: KindCPUUsage, Core: core}
}

// String renders the key as "cpus_usage", "cpu_usage.3", ...
func (k MetricKey) String() string {
	if k.Kind == KindCPUUsage {
		return k.Kind.String() + "." + strconv.Itoa(k.Core)
	}
	return k.Kind.String()
}

// ParseMetricKey is the inverse of MetricKey.String.
func ParseMetricKey(s string) (MetricKey, error) {
	name, id, hasID := strings.Cut(s, ".")
	kind, ok := parseKind(name)
	if !ok {
		return MetricKey{}, fmt.Errorf("%w: %q", ErrUnknownMetric, s)
	}
	if kind != KindCPUUsage {
		if hasID {
			return MetricKey{}, fmt.Errorf("%w: %q takes no core id", ErrUnknownMetric, s)
		}
		return MetricKey{Kind: kind}, nil
	}
	if !hasID {
		return MetricKey{}, fmt.Errorf("%w: %q needs a core id", ErrUnknownMetric, s)
	}
	core, err := strconv.Atoi(id)
	if err != nil || core < 0 {
		return MetricKey{}, fmt.Errorf("%w: bad core id in %q", ErrUnknownMetric, s)
	}
	return CPUUsage(core), nil
}

type coreID struct {
	ID int `json:"id"`
}

// MarshalJSON writes the externally tagged form: "mem_usage" for plain kinds
// and {"cpu_usage":{"id":3}} for per-core keys.
func (k MetricKey) MarshalJSON() ([]byte, error) {
	if int(k.Kind) >= len(kindNames) {
		return nil, fmt.Errorf("%w: kind %d", ErrUnknownMetric, k.Kind)
	}
	if k.Kind == KindCPUUsage {
		return json.Marshal(map[string]coreID{k.Kind.String(): {ID: k.Core}})
	}
	return json.Marshal(k.Kind.String())
}

func (k *MetricKey) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		kind, ok := parseKind(name)
		if !ok || kind == KindCPUUsage {
			return fmt.Errorf("%w: %q", ErrUnknownMetric, name)
		}
		*k = MetricKey{Kind: kind}
		return nil
	}

	var tagged map[string]*struct {
		ID *int `json:"id"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownMetric, err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("%w: expected exactly one tag, got %d", ErrUnknownMetric, len(tagged))
	}
	for name, payload := range tagged {
		kind, ok := parseKind(name)
		if !ok || kind != KindCPUUsage {
			return fmt.Errorf("%w: %q", ErrUnknownMetric, name)
		}
		if payload == nil || payload.ID == nil {
			return fmt.Errorf("%w: %q is missing its core id", ErrUnknownMetric, name)
		}
		if *payload.ID < 0 {
			return fmt.Errorf("%w: bad core id %d", ErrUnknownMetric, *payload.ID)
		}
		*k = CPUUsage(*payload.ID)
	}
	return nil
}

// MetricPoint is one sampled value. Points are copied, never shared, when
// they leave the cache.
type MetricPoint struct {
	Timestamp uint64  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Sample pairs a point with the series it belongs to.
type Sample struct {
	Key   MetricKey
	Point MetricPoint
}

var ErrUnknownMetric = errors.New("unknown metric name")

// MetricCache is the view of the time-series cache used by the sampler and
// the HTTP handlers.
type MetricCache interface {
	Push(key MetricKey, point MetricPoint)
	Read(key MetricKey, count int) ([]MetricPoint, bool)
	Keys() []MetricKey
}

// SampleArchive receives every sampled tick when archiving is enabled.
type SampleArchive interface {
	Init() error
	StoreSamples(ctx context.Context, samples []Sample) error
	GetSamples(ctx context.Context, key MetricKey, limit int) ([]Sample, error)
	Close() error
}
