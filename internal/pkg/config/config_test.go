package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}

	cfg := Get()
	if cfg.Resilience.SlidingWindowSize != 10 {
		t.Errorf("expected default window size 10, got %d", cfg.Resilience.SlidingWindowSize)
	}
	if cfg.Resilience.TimeLimiterTimeout.D() != 3*time.Second {
		t.Errorf("expected default time limiter 3s, got %v", cfg.Resilience.TimeLimiterTimeout.D())
	}
	if cfg.Resilience.WaitDurationInOpenState.D() != 20*time.Second {
		t.Errorf("expected default open wait 20s, got %v", cfg.Resilience.WaitDurationInOpenState.D())
	}
}

func TestLoad_ParsesDurationsAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bastion.yaml")
	content := `
resilience:
  sliding_window_size: 4
  wait_duration_in_open_state: 5s
  retry_wait_duration: 500ms
infra:
  redis_addr: "cache:6379"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := Load(path); err != nil {
		t.Fatal(err)
	}

	cfg := Get()
	if cfg.Resilience.SlidingWindowSize != 4 {
		t.Errorf("expected window size 4, got %d", cfg.Resilience.SlidingWindowSize)
	}
	if cfg.Resilience.WaitDurationInOpenState.D() != 5*time.Second {
		t.Errorf("expected 5s, got %v", cfg.Resilience.WaitDurationInOpenState.D())
	}
	if cfg.Resilience.RetryWaitDuration.D() != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %v", cfg.Resilience.RetryWaitDuration.D())
	}
	if cfg.Infra.RedisAddr != "cache:6379" {
		t.Errorf("expected overridden redis addr, got %s", cfg.Infra.RedisAddr)
	}
	// 未出现的字段仍然取缺省值
	if cfg.Resilience.MaxAttempts != 3 {
		t.Errorf("expected default max attempts 3, got %d", cfg.Resilience.MaxAttempts)
	}
}

func TestLoad_KafkaBrokersEnvSkipsEmptySegments(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,,broker-2:9092,")
	if err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatal(err)
	}

	got := Get().Infra.KafkaBrokers
	want := []string{"broker-1:9092", "broker-2:9092"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("broker %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("REDIS_ADDR", "env-redis:6379")
	if err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatal(err)
	}
	if got := Get().Infra.RedisAddr; got != "env-redis:6379" {
		t.Errorf("expected env override, got %s", got)
	}
}
