package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"dm-core/contract"
	"dm-core/internal/metrics"

	"github.com/shirou/gopsutil/process"
)

// Telemetry samples the process's own CPU and memory usage and publishes
// them as gauges on the metrics endpoint.
type Telemetry struct {
	log      *slog.Logger
	interval time.Duration
}

var _ contract.Worker = (*Telemetry)(nil)

func NewTelemetry(log *slog.Logger, interval time.Duration) *Telemetry {
	return &Telemetry{log: log, interval: interval}
}

func (w *Telemetry) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			memInfo, err := p.MemoryInfo()
			if err != nil {
				w.log.Debug("Failed to collect memory info", "error", err)
				continue
			}
			cpu, err := p.CPUPercent()
			if err != nil {
				w.log.Debug("Failed to collect cpu percent", "error", err)
				continue
			}
			metrics.SelfRSSBytes.Set(float64(memInfo.RSS))
			metrics.SelfCPUPercent.Set(cpu)
		}
	}
}
