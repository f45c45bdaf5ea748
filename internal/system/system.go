package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

var ErrBlenderNotFound = errors.New("blender not found")

// Места установки по умолчанию, PATH проверяется первым.
var DefaultBlenderCandidates = []string{
	"blender",
	"/Applications/Blender.app/Contents/MacOS/Blender",
	"/usr/bin/blender",
	`C:\Program Files\Blender Foundation\Blender 3.6\blender.exe`,
}

// FindBlender возвращает первый кандидат, который отвечает на --version.
// Явно заданный путь (preferred) проверяется раньше списка.
func FindBlender(ctx context.Context, preferred string, candidates []string) (string, error) {
	list := candidates
	if preferred != "" {
		list = append([]string{preferred}, candidates...)
	}

	for _, c := range list {
		path := c
		if !strings.ContainsAny(c, `/\`) {
			resolved, err := exec.LookPath(c)
			if err != nil {
				continue
			}
			path = resolved
		} else if _, err := os.Stat(c); err != nil {
			continue
		}

		if err := exec.CommandContext(ctx, path, "--version").Run(); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w (проверено: %s)", ErrBlenderNotFound, strings.Join(list, ", "))
}

// HostStats для отчета о производительности.
type HostStats struct {
	OS          string
	CPUModel    string
	LogicalCPUs int
	TotalMemMB  uint64
	UsedMemPct  float64
	ProcessRSS  uint64
}

// CollectHostStats собирает то, что удалось получить; отдельные ошибки
// gopsutil не прерывают сбор.
func CollectHostStats(ctx context.Context) HostStats {
	stats := HostStats{OS: runtime.GOOS + "/" + runtime.GOARCH}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		stats.LogicalCPUs = n
	}
	if info, err := cpu.InfoWithContext(ctx); err == nil && len(info) > 0 {
		stats.CPUModel = strings.TrimSpace(info[0].ModelName)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.TotalMemMB = vm.Total / 1024 / 1024
		stats.UsedMemPct = vm.UsedPercent
	}
	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfoWithContext(ctx); err == nil {
			stats.ProcessRSS = mi.RSS
		}
	}
	return stats
}

func (h HostStats) String() string {
	model := h.CPUModel
	if model == "" {
		model = "unknown"
	}
	return fmt.Sprintf("%s | CPU: %s x%d | RAM: %d MB (%.1f%% used) | RSS: %.1f MB",
		h.OS, model, h.LogicalCPUs, h.TotalMemMB, h.UsedMemPct, float64(h.ProcessRSS)/1024/1024)
}
