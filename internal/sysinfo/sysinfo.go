// Package sysinfo reports host characteristics used for startup logging and
// the /config endpoint: CPU count, memory, and the available ffmpeg build.
package sysinfo

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"video-clipper/internal/logging"
)

// Info describes the host the backend is running on.
type Info struct {
	Platform      string  `json:"platform"`
	Arch          string  `json:"arch"`
	GoVersion     string  `json:"go_version"`
	CPUs          int     `json:"cpus"`
	MemoryTotalGB float64 `json:"memory_total_gb"`
	MemoryFreeGB  float64 `json:"memory_free_gb"`
	MemoryUsedGB  float64 `json:"memory_used_gb"`
}

// Collect gathers host information. Memory figures come from /proc/meminfo
// and are zero on platforms without it.
func Collect() Info {
	totalKB, availableKB := readMeminfo("/proc/meminfo")

	const kbPerGB = 1024 * 1024
	total := float64(totalKB) / kbPerGB
	free := float64(availableKB) / kbPerGB

	return Info{
		Platform:      runtime.GOOS,
		Arch:          runtime.GOARCH,
		GoVersion:     runtime.Version(),
		CPUs:          runtime.NumCPU(),
		MemoryTotalGB: total,
		MemoryFreeGB:  free,
		MemoryUsedGB:  total - free,
	}
}

// readMeminfo parses MemTotal and MemAvailable (in KiB) from a
// /proc/meminfo-format file.
func readMeminfo(path string) (totalKB, availableKB int64) {
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Debug("Could not read %s: %v", path, err)
		return 0, 0
	}
	return parseMeminfo(string(data))
}

func parseMeminfo(contents string) (totalKB, availableKB int64) {
	for _, line := range strings.Split(contents, "\n") {
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
	return totalKB, availableKB
}

// FFmpegVersion returns the first line of `ffmpeg -version` output, or
// "not available" when the binary cannot be run. The check is bounded so a
// wedged binary cannot stall startup.
func FFmpegVersion(ffmpegPath string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffmpegPath, "-version")
	output, err := cmd.Output()
	if err != nil {
		logging.Debug("ffmpeg version check failed: %v", err)
		return "not available"
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return "unknown"
	}
	return strings.TrimSpace(lines[0])
}
