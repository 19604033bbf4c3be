// Package config resolves the runtime configuration for the video clipper
// backend.
//
// Values are merged with the precedence: environment variables over the
// optional YAML config file over built-in defaults. Zero-valued concurrency
// fields are auto-detected from the host CPU count. Resolution happens once
// at startup; the resulting Config is immutable and passed explicitly to
// every component that needs it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"video-clipper/internal/logging"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP server and storage paths.
type ServerConfig struct {
	Port             int    `yaml:"port"`
	UploadDir        string `yaml:"upload_dir"`
	OutputDir        string `yaml:"output_dir"`
	MaxFileSizeBytes int64  `yaml:"max_file_size_bytes"`
}

// PerformanceConfig holds concurrency and upload tuning.
type PerformanceConfig struct {
	// MaxConcurrentClips bounds how many encoder processes run at once.
	// 0 means auto-detect from the host CPU count.
	MaxConcurrentClips int `yaml:"max_concurrent_clips"`
	// UploadBufferSize is the write buffer size for streaming uploads to disk.
	UploadBufferSize int `yaml:"upload_buffer_size"`
	// UploadLogIntervalChunks controls how often upload progress is logged.
	UploadLogIntervalChunks int `yaml:"upload_log_interval_chunks"`
}

// FFmpegConfig holds the encoder invocation settings.
type FFmpegConfig struct {
	Preset  string `yaml:"preset"`
	CRF     int    `yaml:"crf"`
	Profile string `yaml:"profile"`
	Level   string `yaml:"level"`
	// ThreadsPerClip is the -threads value per encoder process.
	// 0 means auto-detect from the host CPU count.
	ThreadsPerClip  int      `yaml:"threads_per_clip"`
	PixelFormat     string   `yaml:"pixel_format"`
	Tune            []string `yaml:"tune"`
	AudioCodec      string   `yaml:"audio_codec"`
	UseInputSeeking bool     `yaml:"use_input_seeking"`
	AdditionalFlags []string `yaml:"additional_flags"`
	// Binary paths, overridable for non-standard installs.
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
}

// OptimizationConfig holds clip planning and logging knobs.
type OptimizationConfig struct {
	MinClipDurationSeconds float64 `yaml:"min_clip_duration_seconds"`
	LogLevel               string  `yaml:"log_level"`
}

// LimitsConfig holds caps and timeouts. Zero-valued timeouts are unbounded.
type LimitsConfig struct {
	MaxCachedVideos              int     `yaml:"max_cached_videos"`
	ClipGenerationTimeoutSeconds float64 `yaml:"clip_generation_timeout_seconds"`
	UploadTimeoutSeconds         float64 `yaml:"upload_timeout_seconds"`
	DefaultMaxClipLengthSeconds  float64 `yaml:"default_max_clip_length_seconds"`
}

// Config is the fully resolved runtime configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Performance  PerformanceConfig  `yaml:"performance"`
	FFmpeg       FFmpegConfig       `yaml:"ffmpeg"`
	Optimization OptimizationConfig `yaml:"optimization"`
	Limits       LimitsConfig       `yaml:"limits"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	baseDir, err := os.Getwd()
	if err != nil {
		baseDir = "."
	}

	return Config{
		Server: ServerConfig{
			Port:             3000,
			UploadDir:        filepath.Join(baseDir, "uploads"),
			OutputDir:        filepath.Join(baseDir, "clips"),
			MaxFileSizeBytes: 500 * 1024 * 1024,
		},
		Performance: PerformanceConfig{
			MaxConcurrentClips:      0, // auto
			UploadBufferSize:        1 * 1024 * 1024,
			UploadLogIntervalChunks: 100,
		},
		FFmpeg: FFmpegConfig{
			Preset:          "veryfast",
			CRF:             28,
			Profile:         "high",
			Level:           "4.1",
			ThreadsPerClip:  0, // auto
			PixelFormat:     "yuv420p",
			Tune:            []string{"fastdecode", "zerolatency"},
			AudioCodec:      "aac",
			UseInputSeeking: true,
			AdditionalFlags: []string{"+faststart", "fflags=+genpts", "avoid_negative_ts=make_zero"},
			FFmpegPath:      "ffmpeg",
			FFprobePath:     "ffprobe",
		},
		Optimization: OptimizationConfig{
			MinClipDurationSeconds: 3,
			LogLevel:               "info",
		},
		Limits: LimitsConfig{
			MaxCachedVideos:              100,
			ClipGenerationTimeoutSeconds: 0,
			UploadTimeoutSeconds:         0,
			DefaultMaxClipLengthSeconds:  15,
		},
	}
}

// Load resolves the configuration: defaults, then the YAML file at path (if
// path is empty, CONFIG_FILE or ./config.yaml is tried; a missing file is
// not an error), then environment overrides, then auto-detection of
// zero-valued concurrency fields from numCPU.
func Load(path string, numCPU int) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		path = "config.yaml"
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		logging.Info("Loaded config file: %s", path)
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	applyEnv(&cfg)
	Autodetect(&cfg, numCPU)

	if err := validate(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Autodetect resolves zero-valued concurrency fields from the CPU count:
// MaxConcurrentClips = clamp(numCPU-1, 2, 8) and
// ThreadsPerClip = clamp(numCPU/2, 1, 4).
func Autodetect(cfg *Config, numCPU int) {
	if cfg.Performance.MaxConcurrentClips == 0 {
		cfg.Performance.MaxConcurrentClips = clamp(numCPU-1, 2, 8)
	}
	if cfg.FFmpeg.ThreadsPerClip == 0 {
		cfg.FFmpeg.ThreadsPerClip = clamp(numCPU/2, 1, 4)
	}
}

// MaxConcurrentVideos derives how many videos a client can safely process
// at once from the clip concurrency budget: clamp(ceil(maxClips/3), 1, 3).
func (c Config) MaxConcurrentVideos() int {
	calculated := (c.Performance.MaxConcurrentClips + 2) / 3
	return clamp(calculated, 1, 3)
}

func applyEnv(cfg *Config) {
	envInt("PORT", &cfg.Server.Port)
	envString("UPLOAD_DIR", &cfg.Server.UploadDir)
	envString("OUTPUT_DIR", &cfg.Server.OutputDir)
	envInt64("MAX_FILE_SIZE", &cfg.Server.MaxFileSizeBytes)

	envInt("MAX_CONCURRENT_CLIPS", &cfg.Performance.MaxConcurrentClips)
	envInt("UPLOAD_BUFFER_SIZE", &cfg.Performance.UploadBufferSize)
	envInt("UPLOAD_LOG_INTERVAL", &cfg.Performance.UploadLogIntervalChunks)

	envString("FFMPEG_PRESET", &cfg.FFmpeg.Preset)
	envInt("FFMPEG_CRF", &cfg.FFmpeg.CRF)
	envString("FFMPEG_PROFILE", &cfg.FFmpeg.Profile)
	envString("FFMPEG_LEVEL", &cfg.FFmpeg.Level)
	envInt("FFMPEG_THREADS_PER_CLIP", &cfg.FFmpeg.ThreadsPerClip)
	envString("FFMPEG_PIXEL_FORMAT", &cfg.FFmpeg.PixelFormat)
	envStringSlice("FFMPEG_TUNE", &cfg.FFmpeg.Tune)
	envString("FFMPEG_AUDIO_CODEC", &cfg.FFmpeg.AudioCodec)
	envBool("FFMPEG_USE_INPUT_SEEKING", &cfg.FFmpeg.UseInputSeeking)
	envStringSlice("FFMPEG_ADDITIONAL_FLAGS", &cfg.FFmpeg.AdditionalFlags)
	envString("FFMPEG_PATH", &cfg.FFmpeg.FFmpegPath)
	envString("FFPROBE_PATH", &cfg.FFmpeg.FFprobePath)

	envFloat("MIN_CLIP_DURATION", &cfg.Optimization.MinClipDurationSeconds)
	envString("LOG_LEVEL", &cfg.Optimization.LogLevel)

	envInt("MAX_CACHED_VIDEOS", &cfg.Limits.MaxCachedVideos)
	envFloat("CLIP_GENERATION_TIMEOUT", &cfg.Limits.ClipGenerationTimeoutSeconds)
	envFloat("UPLOAD_TIMEOUT", &cfg.Limits.UploadTimeoutSeconds)
	envFloat("DEFAULT_MAX_CLIP_LENGTH", &cfg.Limits.DefaultMaxClipLengthSeconds)
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if cfg.Server.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("invalid max file size: %d", cfg.Server.MaxFileSizeBytes)
	}
	if cfg.Performance.MaxConcurrentClips <= 0 {
		return fmt.Errorf("invalid max concurrent clips: %d", cfg.Performance.MaxConcurrentClips)
	}
	if cfg.FFmpeg.ThreadsPerClip <= 0 {
		return fmt.Errorf("invalid threads per clip: %d", cfg.FFmpeg.ThreadsPerClip)
	}
	if cfg.Performance.UploadBufferSize <= 0 {
		return fmt.Errorf("invalid upload buffer size: %d", cfg.Performance.UploadBufferSize)
	}
	if cfg.Limits.DefaultMaxClipLengthSeconds <= 0 {
		return fmt.Errorf("invalid default max clip length: %f", cfg.Limits.DefaultMaxClipLengthSeconds)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Env override helpers. Invalid values are logged and ignored so a typo in
// the environment never silently replaces a working value.

func envString(key string, target *string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func envStringSlice(key string, target *[]string) {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		*target = out
	}
}

func envInt(key string, target *int) {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			logging.Warn("Invalid integer for %s: %q, keeping %d", key, value, *target)
			return
		}
		*target = parsed
	}
}

func envInt64(key string, target *int64) {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			logging.Warn("Invalid integer for %s: %q, keeping %d", key, value, *target)
			return
		}
		*target = parsed
	}
}

func envFloat(key string, target *float64) {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			logging.Warn("Invalid number for %s: %q, keeping %v", key, value, *target)
			return
		}
		*target = parsed
	}
}

func envBool(key string, target *bool) {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			logging.Warn("Invalid boolean for %s: %q, keeping %v", key, value, *target)
			return
		}
		*target = parsed
	}
}
