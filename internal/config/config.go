package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode controls how the pipeline talks to the model provider. Loaded once
// at startup and handed around by value; nothing mutates it afterwards.
type Mode struct {
	ForceReal         bool `yaml:"forceReal" json:"forceReal"`
	AllowMockFallback bool `yaml:"allowMockFallback" json:"allowMockFallback"`
	Debug             bool `yaml:"debug" json:"debug"`
}

// ShouldFallback reports whether a failed provider call may degrade to mock
// output. Independent of ForceReal, which only disables the demo-id bypass.
func (m Mode) ShouldFallback() bool { return m.AllowMockFallback }

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Mode Mode `yaml:"mode"`

	AI struct {
		BaseURL        string `yaml:"baseURL"`
		APIKey         string `yaml:"apiKey"`
		Model          string `yaml:"model"`
		MaxTokens      int    `yaml:"maxTokens"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
	} `yaml:"ai"`

	Plan struct {
		PollIntervalSeconds int `yaml:"pollIntervalSeconds"`
		PollAttempts        int `yaml:"pollAttempts"`
	} `yaml:"plan"`

	Storage struct {
		Driver   string `yaml:"driver"` // minio or local
		LocalDir string `yaml:"localDir"`
	} `yaml:"storage"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Auth struct {
		APIKeys []string `yaml:"apiKeys"`
	} `yaml:"auth"`

	RateLimit struct {
		PerMinute int `yaml:"perMinute"`
		Burst     int `yaml:"burst"`
	} `yaml:"rateLimit"`
}

// Load reads the yaml config at path and applies environment overrides.
// A missing file is fine; defaults plus environment are enough to boot
// in mock mode.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Mode.AllowMockFallback = true
	cfg.AI.Model = "gpt-4o"
	cfg.AI.MaxTokens = 2048
	cfg.AI.TimeoutSeconds = 60
	cfg.Plan.PollIntervalSeconds = 1
	cfg.Plan.PollAttempts = 15
	cfg.Storage.Driver = "local"
	cfg.Storage.LocalDir = "data/scans"
	cfg.Minio.BucketName = "scans"
	cfg.RateLimit.PerMinute = 120
	cfg.RateLimit.Burst = 20
	return cfg
}

func applyEnv(cfg *Config) {
	envInt("PORT", &cfg.Server.Port)
	envBool("AI_FORCE_REAL", &cfg.Mode.ForceReal)
	envBool("AI_ALLOW_MOCK_FALLBACK", &cfg.Mode.AllowMockFallback)
	envBool("AI_DEBUG", &cfg.Mode.Debug)
	envStr("OPENAI_API_KEY", &cfg.AI.APIKey)
	envStr("OPENAI_BASE_URL", &cfg.AI.BaseURL)
	envStr("AI_MODEL", &cfg.AI.Model)
	envStr("STORAGE_DRIVER", &cfg.Storage.Driver)
	envStr("STORAGE_LOCAL_DIR", &cfg.Storage.LocalDir)
	envStr("MINIO_ENDPOINT", &cfg.Minio.Endpoint)
	envStr("MINIO_ACCESS_KEY", &cfg.Minio.AccessKey)
	envStr("MINIO_SECRET_KEY", &cfg.Minio.SecretKey)
	envStr("MINIO_BUCKET", &cfg.Minio.BucketName)
	if v := os.Getenv("API_KEYS"); v != "" {
		cfg.Auth.APIKeys = cfg.Auth.APIKeys[:0]
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				cfg.Auth.APIKeys = append(cfg.Auth.APIKeys, k)
			}
		}
	}
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// AITimeout bounds a single provider round trip.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

// PlanPollInterval is the wait between analysis polls during plan generation.
func (c *Config) PlanPollInterval() time.Duration {
	return time.Duration(c.Plan.PollIntervalSeconds) * time.Second
}
