package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	API       APIConfig
	Transport TransportConfig
	History   HistoryConfig
	Redis     RedisConfig
	Session   SessionConfig
	Upload    UploadConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type TransportConfig struct {
	URL              string
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
	PingPeriod       time.Duration // must be shorter than PongWait
	PongWait         time.Duration
	WriteWait        time.Duration
	MaxFrameSize     int64
}

type HistoryConfig struct {
	Limit  int
	Dedupe bool
}

// RedisConfig configures the session store. An empty Address keeps sessions
// in memory only.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
}

type SessionConfig struct {
	TTL       time.Duration
	CacheSize int
}

type UploadConfig struct {
	MaxFileSize       int64
	MaxImageSize      int64
	AllowedMimeTypes  []string
	AllowedExtensions []string
}

type LogConfig struct {
	File  string
	Level string
}

type MetricsConfig struct {
	Address string // empty disables the endpoint
}

// getProjectRoot finds the project root by looking for go.mod
func getProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	if projectRoot := os.Getenv("PROJECT_ROOT"); projectRoot != "" {
		return projectRoot, nil
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root (no go.mod found)")
		}
		dir = parent
	}
}

// resolvePath resolves a path relative to the project root if it's not absolute.
// Outside a source checkout the working directory is used instead.
func resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	root, err := getProjectRoot()
	if err != nil {
		if wd, wdErr := os.Getwd(); wdErr == nil {
			return filepath.Join(wd, path)
		}
		return path
	}
	return filepath.Join(root, path)
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: 10 * time.Second,
		},
		Transport: TransportConfig{
			URL:              "ws://localhost:8081/ws",
			ReconnectDelay:   3 * time.Second,
			HandshakeTimeout: 10 * time.Second,
			PingPeriod:       54 * time.Second,
			PongWait:         60 * time.Second,
			WriteWait:        10 * time.Second,
			MaxFrameSize:     64 * 1024,
		},
		History: HistoryConfig{
			Limit: 50,
		},
		Session: SessionConfig{
			TTL:       24 * time.Hour,
			CacheSize: 128,
		},
		Upload: UploadConfig{
			MaxFileSize:  10 * 1024 * 1024, // 10MB
			MaxImageSize: 5 * 1024 * 1024,  // 5MB
			AllowedMimeTypes: []string{
				"image/jpeg",
				"image/png",
				"image/gif",
				"image/webp",
			},
			AllowedExtensions: []string{
				".jpg",
				".jpeg",
				".png",
				".gif",
				".webp",
			},
		},
		Log: LogConfig{
			File:  "./log/chat.log",
			Level: "INFO",
		},
	}
}

func Load() (*Config, error) {
	d := Default()

	cfg := &Config{
		API: APIConfig{
			BaseURL: strings.TrimRight(getEnv("API_BASE_URL", d.API.BaseURL), "/"),
			Timeout: getEnvAsDuration("HTTP_TIMEOUT", d.API.Timeout),
		},
		Transport: TransportConfig{
			URL:              getEnv("WS_URL", d.Transport.URL),
			ReconnectDelay:   getEnvAsDuration("RECONNECT_DELAY", d.Transport.ReconnectDelay),
			HandshakeTimeout: getEnvAsDuration("HANDSHAKE_TIMEOUT", d.Transport.HandshakeTimeout),
			PingPeriod:       getEnvAsDuration("PING_PERIOD", d.Transport.PingPeriod),
			PongWait:         getEnvAsDuration("PONG_WAIT", d.Transport.PongWait),
			WriteWait:        getEnvAsDuration("WRITE_WAIT", d.Transport.WriteWait),
			MaxFrameSize:     getEnvAsInt64("MAX_FRAME_SIZE", d.Transport.MaxFrameSize),
		},
		History: HistoryConfig{
			Limit:  getEnvAsInt("HISTORY_LIMIT", d.History.Limit),
			Dedupe: getEnvAsBool("HISTORY_DEDUPE", d.History.Dedupe),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDR", ""),
			Username: getEnv("REDIS_USERNAME", "default"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			TTL:       getEnvAsDuration("SESSION_TTL", d.Session.TTL),
			CacheSize: getEnvAsInt("SESSION_CACHE_SIZE", d.Session.CacheSize),
		},
		Upload: UploadConfig{
			MaxFileSize:       getEnvAsInt64("MAX_FILE_SIZE", d.Upload.MaxFileSize),
			MaxImageSize:      getEnvAsInt64("MAX_IMAGE_SIZE", d.Upload.MaxImageSize),
			AllowedMimeTypes:  d.Upload.AllowedMimeTypes,
			AllowedExtensions: d.Upload.AllowedExtensions,
		},
		Log: LogConfig{
			File:  resolvePath(getEnv("LOG_FILE", d.Log.File)),
			Level: strings.ToUpper(getEnv("LOG_LEVEL", d.Log.Level)),
		},
		Metrics: MetricsConfig{
			Address: getEnv("METRICS_ADDR", ""),
		},
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	var errors []string

	// API validation
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		errors = append(errors, fmt.Sprintf("invalid API base URL: %q (API_BASE_URL must be http or https)", c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		errors = append(errors, "HTTP timeout must be > 0")
	}

	// Transport validation
	if !strings.HasPrefix(c.Transport.URL, "ws://") && !strings.HasPrefix(c.Transport.URL, "wss://") {
		errors = append(errors, fmt.Sprintf("invalid websocket URL: %q (WS_URL must be ws or wss)", c.Transport.URL))
	}
	if c.Transport.ReconnectDelay <= 0 {
		errors = append(errors, "reconnect delay must be > 0")
	}
	if c.Transport.HandshakeTimeout <= 0 {
		errors = append(errors, "handshake timeout must be > 0")
	}
	if c.Transport.PongWait <= 0 || c.Transport.PingPeriod <= 0 {
		errors = append(errors, "ping period and pong wait must be > 0")
	} else if c.Transport.PingPeriod >= c.Transport.PongWait {
		errors = append(errors, fmt.Sprintf("ping period %s must be shorter than pong wait %s", c.Transport.PingPeriod, c.Transport.PongWait))
	}
	if c.Transport.WriteWait <= 0 {
		errors = append(errors, "write wait must be > 0")
	}
	if c.Transport.MaxFrameSize <= 0 {
		errors = append(errors, fmt.Sprintf("invalid max frame size: %d (must be > 0)", c.Transport.MaxFrameSize))
	}

	// History validation
	if c.History.Limit <= 0 {
		errors = append(errors, fmt.Sprintf("invalid history limit: %d (must be > 0)", c.History.Limit))
	}

	// Redis validation
	if c.Redis.Address != "" && c.Redis.DB < 0 {
		errors = append(errors, fmt.Sprintf("invalid redis DB: %d", c.Redis.DB))
	}

	// Session validation
	if c.Session.TTL <= 0 {
		errors = append(errors, "session TTL must be > 0")
	}
	if c.Session.CacheSize <= 0 {
		errors = append(errors, "session cache size must be > 0")
	}

	// Upload validation
	if c.Upload.MaxFileSize <= 0 {
		errors = append(errors, fmt.Sprintf("invalid max file size: %d (must be > 0)", c.Upload.MaxFileSize))
	}
	if c.Upload.MaxImageSize <= 0 {
		errors = append(errors, fmt.Sprintf("invalid max image size: %d (must be > 0)", c.Upload.MaxImageSize))
	}
	if len(c.Upload.AllowedMimeTypes) == 0 {
		errors = append(errors, "at least one allowed MIME type is required")
	}

	// Log validation
	switch c.Log.Level {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level: %q (LOG_LEVEL must be DEBUG, INFO, WARN or ERROR)", c.Log.Level))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// PrintSummary logs a summary of the loaded configuration
func (c *Config) PrintSummary() {
	fmt.Println("Configuration Summary:")
	fmt.Printf("  API: %s (timeout: %s)\n", c.API.BaseURL, c.API.Timeout)
	fmt.Printf("  WebSocket: %s (reconnect every %s)\n", c.Transport.URL, c.Transport.ReconnectDelay)
	fmt.Printf("  History: limit %d, dedupe %t\n", c.History.Limit, c.History.Dedupe)
	if c.Redis.Address != "" {
		fmt.Printf("  Sessions: redis %s (DB: %d, TTL: %s)\n", c.Redis.Address, c.Redis.DB, c.Session.TTL)
	} else {
		fmt.Printf("  Sessions: memory (TTL: %s)\n", c.Session.TTL)
	}
	fmt.Printf("  Upload Max Size: %.2f MB (images %.2f MB)\n",
		float64(c.Upload.MaxFileSize)/(1024*1024), float64(c.Upload.MaxImageSize)/(1024*1024))
	fmt.Printf("  Log: %s (%s)\n", c.Log.File, c.Log.Level)
	if c.Metrics.Address != "" {
		fmt.Printf("  Metrics: %s\n", c.Metrics.Address)
	}
}

// Helper functions to read environment variables with defaults
func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if val, err := strconv.Atoi(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	valStr := os.Getenv(key)
	if val, err := strconv.ParseInt(valStr, 10, 64); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := os.Getenv(key)
	if val, err := time.ParseDuration(valStr); err == nil {
		return val
	}
	return defaultVal
}
