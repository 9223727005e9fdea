package sampler

import (
	"context"
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/net"
)

var ErrInterfaceNotFound = errors.New("network interface not found")

// Source reads host statistics. Utilizations are fractions in [0,1]; network
// counters are cumulative byte counts since boot.
type Source interface {
	CPUUsage(ctx context.Context) (total float64, perCore []float64, err error)
	MemoryUsage(ctx context.Context) (float64, error)
	NetCounters(ctx context.Context, iface string) (tx, rx uint64, err error)
}

// HostSource reads the local host through gopsutil.
type HostSource struct{}

func NewHostSource() *HostSource {
	return &HostSource{}
}

// CPUUsage reports utilization since the previous call.
func (HostSource) CPUUsage(ctx context.Context) (float64, []float64, error) {
	total, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	if len(total) == 0 {
		return 0, nil, errors.New("no aggregate cpu usage reported")
	}

	perCore, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read per-core cpu usage: %w", err)
	}
	for i := range perCore {
		perCore[i] = ratio(perCore[i])
	}
	return ratio(total[0]), perCore, nil
}

func (HostSource) MemoryUsage(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read memory usage: %w", err)
	}
	if vm.Total == 0 {
		return 0, errors.New("total memory reported as zero")
	}
	return float64(vm.Used) / float64(vm.Total), nil
}

func (HostSource) NetCounters(ctx context.Context, iface string) (uint64, uint64, error) {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read network counters: %w", err)
	}
	for _, c := range counters {
		if c.Name == iface {
			return c.BytesSent, c.BytesRecv, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: %s", ErrInterfaceNotFound, iface)
}

// ratio converts a percentage to a fraction clamped to [0,1].
func ratio(percent float64) float64 {
	return min(max(percent/100, 0), 1)
}
