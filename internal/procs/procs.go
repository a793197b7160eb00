// Package procs lists running processes for entry suggestions.
package procs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shirou/gopsutil/v3/process"
)

// Info describes one running process.
type Info struct {
	PID         int32   `json:"pid"`
	Name        string  `json:"name"`
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage uint64  `json:"memory_usage"`
}

// Source enumerates processes.
type Source interface {
	Processes(ctx context.Context) ([]Info, error)
}

// System reads processes from the host via gopsutil.
type System struct {
	Logger *slog.Logger
}

// Processes implements Source. Processes that exit or deny access while
// being read are skipped.
func (s System) Processes(ctx context.Context) ([]Info, error) {
	ps, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	out := make([]Info, 0, len(ps))
	for _, p := range ps {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			logger.Debug("skip process", "pid", p.Pid, "err", err)
			continue
		}
		info := Info{PID: p.Pid, Name: name}
		if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
			info.CPUUsage = cpu
		}
		if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
			info.MemoryUsage = mem.RSS
		}
		out = append(out, info)
	}
	return out, nil
}

// List returns processes from src sorted by CPU usage, highest first. Ties
// keep PID order.
func List(ctx context.Context, src Source) ([]Info, error) {
	ps, err := src.Processes(ctx)
	if err != nil {
		return nil, err
	}
	SortByCPU(ps)
	return ps, nil
}

// SortByCPU sorts ps by CPU usage descending, then by PID.
func SortByCPU(ps []Info) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].CPUUsage != ps[j].CPUUsage {
			return ps[i].CPUUsage > ps[j].CPUUsage
		}
		return ps[i].PID < ps[j].PID
	})
}

// Top returns at most n entries of ps. n <= 0 returns ps unchanged.
func Top(ps []Info, n int) []Info {
	if n <= 0 || n >= len(ps) {
		return ps
	}
	return ps[:n]
}
