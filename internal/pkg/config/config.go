// Package config 负责加载 yaml 配置文件，并允许环境变量覆盖关键字段。
package config

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 是整个进程的配置根。
type Config struct {
	App        App        `yaml:"app"`
	Infra      Infra      `yaml:"infra"`
	Resilience Resilience `yaml:"resilience"`
}

type App struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

type Infra struct {
	MysqlDSN     string   `yaml:"mysql_dsn"`
	RedisAddr    string   `yaml:"redis_addr"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	Jaeger       Jaeger   `yaml:"jaeger"`
	Nacos        Nacos    `yaml:"nacos"`

	// 服务发现不可用时的静态兜底地址，key 为服务名。
	StaticServices map[string]string `yaml:"static_services"`
}

type Jaeger struct {
	Endpoint string `yaml:"endpoint"`
}

type Nacos struct {
	ServerAddrs string `yaml:"server_addrs"`
	Namespace   string `yaml:"namespace"`
	Group       string `yaml:"group"`
}

// Duration 让 yaml 里的 "20s" / "500ms" 直接解析为 time.Duration。
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", s)
	}
	*d = Duration(dur)
	return nil
}

// D returns the wrapped time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// Resilience 收敛了守卫链的所有参数，缺省值即本系统的标定值。
type Resilience struct {
	SlidingWindowSize       int      `yaml:"sliding_window_size"`
	FailureRateThreshold    float64  `yaml:"failure_rate_threshold"`
	WaitDurationInOpenState Duration `yaml:"wait_duration_in_open_state"`
	HalfOpenMaxCalls        int      `yaml:"half_open_max_calls"`

	MaxAttempts       int      `yaml:"max_attempts"`
	RetryWaitDuration Duration `yaml:"retry_wait_duration"`

	LimitForPeriod     int      `yaml:"limit_for_period"`
	LimitRefreshPeriod Duration `yaml:"limit_refresh_period"`
	RateLimiterTimeout Duration `yaml:"rate_limiter_timeout"`

	TimeLimiterTimeout Duration `yaml:"time_limiter_timeout"`
}

var (
	current Config
	mu      sync.RWMutex
)

// Load 从 path 读取配置。path 为空时依次尝试 BASTION_CONFIG 环境变量和
// configs/bastion.yaml。文件缺失不是错误，所有字段都有可用的缺省值。
func Load(path string) error {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("BASTION_CONFIG")
	}
	if path == "" {
		path = "configs/bastion.yaml"
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return errors.Wrapf(err, "parse config %s", path)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "read config %s", path)
	}

	applyEnvOverrides(&cfg)
	fillResilienceDefaults(&cfg.Resilience)

	mu.Lock()
	current = cfg
	mu.Unlock()
	return nil
}

// Get 返回当前配置的副本。
func Get() Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func defaults() Config {
	return Config{
		App: App{LogLevel: "info", LogFormat: "json"},
		Infra: Infra{
			MysqlDSN:     "root:root@tcp(localhost:3306)/bastion?charset=utf8mb4&parseTime=True&loc=Local",
			RedisAddr:    "localhost:6379",
			KafkaBrokers: []string{"localhost:9092"},
			Jaeger:       Jaeger{Endpoint: "http://localhost:14268/api/traces"},
			Nacos:        Nacos{ServerAddrs: "", Group: "DEFAULT_GROUP"},
			StaticServices: map[string]string{
				"inventory-service": "http://localhost:8082",
				"pricing-service":   "http://localhost:8083",
			},
		},
		Resilience: Resilience{},
	}
}

func fillResilienceDefaults(r *Resilience) {
	if r.SlidingWindowSize <= 0 {
		r.SlidingWindowSize = 10
	}
	if r.FailureRateThreshold <= 0 {
		r.FailureRateThreshold = 50
	}
	if r.WaitDurationInOpenState <= 0 {
		r.WaitDurationInOpenState = Duration(20 * time.Second)
	}
	if r.HalfOpenMaxCalls <= 0 {
		r.HalfOpenMaxCalls = 1
	}
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = 3
	}
	if r.RetryWaitDuration <= 0 {
		r.RetryWaitDuration = Duration(2 * time.Second)
	}
	if r.LimitForPeriod <= 0 {
		r.LimitForPeriod = 5
	}
	if r.LimitRefreshPeriod <= 0 {
		r.LimitRefreshPeriod = Duration(10 * time.Second)
	}
	if r.RateLimiterTimeout <= 0 {
		r.RateLimiterTimeout = Duration(2 * time.Second)
	}
	if r.TimeLimiterTimeout <= 0 {
		r.TimeLimiterTimeout = Duration(3 * time.Second)
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		cfg.Infra.MysqlDSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Infra.RedisAddr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Infra.KafkaBrokers = splitNonEmpty(v)
	}
	if v := os.Getenv("JAEGER_ENDPOINT"); v != "" {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v := os.Getenv("NACOS_SERVER_ADDRS"); v != "" {
		cfg.Infra.Nacos.ServerAddrs = v
	}
	if v := os.Getenv("NACOS_NAMESPACE"); v != "" {
		cfg.Infra.Nacos.Namespace = v
	}
	if v := os.Getenv("NACOS_GROUP"); v != "" {
		cfg.Infra.Nacos.Group = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.App.LogLevel = v
	}
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
