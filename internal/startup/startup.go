// Package startup handles process bring-up: build metadata, the startup
// banner, directory preparation, and the structured log sections emitted
// while the server comes online.
package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"video-clipper/internal/config"
	"video-clipper/internal/logging"
	"video-clipper/internal/sysinfo"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// PrintBanner prints the startup banner and build identification.
func PrintBanner() {
	banner := `
------------------------------------------------------------
 _   ___    __              ________
| | / (_)__/ /__ ___       / ___/ (_)__  ___  ___ ____
| |/ / / _  / -_) _ \     / /__/ / / _ \/ _ \/ -_) __/
|___/_/\_,_/\__/\___/     \___/_/_/ .__/ .__/\__/_/
                                 /_/  /_/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

// LogSystemInfo logs host details relevant to concurrency sizing.
func LogSystemInfo() {
	info := sysinfo.Collect()

	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", info.GoVersion)
	logging.Info("  OS/Arch:         %s/%s", info.Platform, info.Arch)
	logging.Info("  CPUs available:  %d", info.CPUs)
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if info.MemoryTotalGB > 0 {
		logging.Info("  Memory:          %.1f GB total, %.1f GB free", info.MemoryTotalGB, info.MemoryFreeGB)
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

// LogConfig logs the fully resolved configuration.
func LogConfig(cfg *config.Config) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Port:                 %d", cfg.Server.Port)
	logging.Info("  Upload dir:           %s", cfg.Server.UploadDir)
	logging.Info("  Output dir:           %s", cfg.Server.OutputDir)
	logging.Info("  Max file size:        %d MiB", cfg.Server.MaxFileSizeBytes/(1024*1024))
	logging.Info("  Max concurrent clips: %d", cfg.Performance.MaxConcurrentClips)
	logging.Info("  Threads per clip:     %d", cfg.FFmpeg.ThreadsPerClip)
	logging.Info("  Preset / CRF:         %s / %d", cfg.FFmpeg.Preset, cfg.FFmpeg.CRF)
	logging.Info("  Profile / Level:      %s / %s", cfg.FFmpeg.Profile, cfg.FFmpeg.Level)
	logging.Info("  Min clip duration:    %.1fs", cfg.Optimization.MinClipDurationSeconds)
	logging.Info("  Default clip length:  %.1fs", cfg.Limits.DefaultMaxClipLengthSeconds)
	if cfg.Limits.ClipGenerationTimeoutSeconds > 0 {
		logging.Info("  Clip timeout:         %ds", cfg.Limits.ClipGenerationTimeoutSeconds)
	} else {
		logging.Info("  Clip timeout:         unbounded")
	}
	logging.Info("  Log level:            %s", logging.GetLevel())
	logging.Info("")
}

// PrepareDirectories creates and verifies the upload and output directories.
// Both are required: refusing uploads at startup beats failing mid-stream.
func PrepareDirectories(cfg *config.Config) error {
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	for _, dir := range []struct {
		path string
		name string
	}{
		{cfg.Server.UploadDir, "upload"},
		{cfg.Server.OutputDir, "output"},
	} {
		abs, err := filepath.Abs(dir.path)
		if err != nil {
			return fmt.Errorf("resolving %s directory path: %w", dir.name, err)
		}
		if err := ensureDirectory(abs, dir.name); err != nil {
			return fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		if err := testWriteAccess(abs); err != nil {
			return fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
		logging.Info("  [OK] %s directory is writable: %s", dir.name, abs)
	}

	logging.Info("")
	return nil
}

// LogFFmpegCheck verifies the encoder and prober binaries are reachable.
// Missing binaries are a warning, not a startup failure, so the server can
// come up in environments where ffmpeg is mounted later.
func LogFFmpegCheck(cfg *config.Config) {
	logging.Info("------------------------------------------------------------")
	logging.Info("ENCODER CHECK")
	logging.Info("------------------------------------------------------------")

	version := sysinfo.FFmpegVersion(cfg.FFmpeg.FFmpegPath)
	if version == "not available" {
		logging.Warn("  ffmpeg not found at %q", cfg.FFmpeg.FFmpegPath)
		logging.Warn("  Clip generation will fail until ffmpeg is installed")
	} else {
		logging.Info("  [OK] %s", version)
	}
	logging.Info("")
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router) {
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))

		sort.Slice(routes, func(i, j int) bool {
			if routes[i].Path != routes[j].Path {
				return routes[i].Path < routes[j].Path
			}
			return routes[i].Method < routes[j].Method
		})

		for _, route := range routes {
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
	}

	logging.Info("  HTTP logging enabled")
	logging.Info("")
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            int
	MetricsPort     int
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with endpoint information
func LogServerStarted(cfg ServerConfig) {
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", cfg.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%d", cfg.Port)
	if cfg.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%d/metrics", cfg.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Write access was confirmed, leftover file is harmless
	}
	return nil
}
