package agent

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/piccolo-io/piccolo/pkg/types"
)

// ResourceSampler reports local capacity and current usage.
type ResourceSampler interface {
	Sample(ctx context.Context) (types.NodeResources, error)
}

// ProcSampler reads capacity and usage from /proc and statfs. CPU usage
// is computed from the delta between consecutive /proc/stat samples, so
// the first sample reports zero.
type ProcSampler struct {
	rootPath string

	mu        sync.Mutex
	prevIdle  uint64
	prevTotal uint64
}

// NewProcSampler creates a sampler measuring disk capacity at rootPath.
func NewProcSampler(rootPath string) *ProcSampler {
	if rootPath == "" {
		rootPath = "/"
	}
	return &ProcSampler{rootPath: rootPath}
}

// Sample gathers the current resource snapshot.
func (s *ProcSampler) Sample(ctx context.Context) (types.NodeResources, error) {
	res := types.NodeResources{CPUCores: runtime.NumCPU()}

	totalMB, usagePct := s.memory()
	res.MemoryMB = totalMB
	res.MemoryUsage = usagePct

	res.DiskGB = s.disk()
	res.CPUUsage = s.cpu()

	return res, nil
}

// memory parses /proc/meminfo for total size and usage percentage.
func (s *ProcSampler) memory() (int64, float64) {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0, 0
	}

	var totalKB, availableKB int64
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			totalKB = value
		case "MemAvailable:":
			availableKB = value
		}
	}

	if totalKB == 0 {
		return 0, 0
	}
	usage := float64(totalKB-availableKB) / float64(totalKB) * 100
	return totalKB / 1024, usage
}

// disk reports the size of the filesystem holding rootPath.
func (s *ProcSampler) disk() int64 {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(s.rootPath, &stat); err != nil {
		return 0
	}
	return int64(stat.Blocks) * stat.Bsize / (1 << 30)
}

// cpu reports usage percent over the window since the previous sample.
func (s *ProcSampler) cpu() float64 {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return 0
	}

	var idle, total uint64
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		fields := strings.Fields(line)
		for i, field := range fields[1:] {
			value, err := strconv.ParseUint(field, 10, 64)
			if err != nil {
				continue
			}
			total += value
			// idle + iowait
			if i == 3 || i == 4 {
				idle += value
			}
		}
		break
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dIdle := idle - s.prevIdle
	dTotal := total - s.prevTotal
	first := s.prevTotal == 0
	s.prevIdle, s.prevTotal = idle, total

	if first || dTotal == 0 {
		return 0
	}
	return float64(dTotal-dIdle) / float64(dTotal) * 100
}
