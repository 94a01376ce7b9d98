package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.MonitoringInterval != 5*time.Minute {
		t.Errorf("MonitoringInterval = %v, want 5m", cfg.MonitoringInterval)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.RetryDelay != 5*time.Second {
		t.Errorf("RetryDelay = %v, want 5s", cfg.RetryDelay)
	}
	if cfg.NavigationTimeout != 30*time.Second {
		t.Errorf("NavigationTimeout = %v, want 30s", cfg.NavigationTimeout)
	}
	if cfg.DefaultAlertThreshold != 5 {
		t.Errorf("DefaultAlertThreshold = %v, want 5", cfg.DefaultAlertThreshold)
	}
	if len(cfg.Regions) != 5 {
		t.Errorf("Regions = %v, want 5 regions", cfg.Regions)
	}
	if cfg.PostalCodes["de"] != "34117" {
		t.Errorf("PostalCodes[de] = %q, want 34117", cfg.PostalCodes["de"])
	}
	if cfg.PostalCodes["com"] != "22102" {
		t.Errorf("PostalCodes[com] = %q, want 22102", cfg.PostalCodes["com"])
	}
}

func TestLoadOverrides(t *testing.T) {
	os.Setenv("MONITORING_INTERVAL", "10m")
	os.Setenv("MONITOR_REGIONS", "ae, sa")
	os.Setenv("MAX_RETRIES", "5")
	defer func() {
		os.Unsetenv("MONITORING_INTERVAL")
		os.Unsetenv("MONITOR_REGIONS")
		os.Unsetenv("MAX_RETRIES")
	}()

	cfg := Load()

	if cfg.MonitoringInterval != 10*time.Minute {
		t.Errorf("MonitoringInterval = %v, want 10m", cfg.MonitoringInterval)
	}
	if len(cfg.Regions) != 2 || cfg.Regions[0] != "ae" || cfg.Regions[1] != "sa" {
		t.Errorf("Regions = %v, want [ae sa]", cfg.Regions)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
}

func TestClampInterval(t *testing.T) {
	cfg := Load()

	cases := []struct {
		input int
		want  int
	}{
		{0, cfg.DefaultScrapeInterval},
		{-3, cfg.DefaultScrapeInterval},
		{cfg.MinScrapeInterval, cfg.MinScrapeInterval},
		{cfg.MaxScrapeInterval + 100, cfg.MaxScrapeInterval},
		{60, 60},
	}
	for _, tc := range cases {
		if got := cfg.ClampInterval(tc.input); got != tc.want {
			t.Errorf("ClampInterval(%d) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestThresholdOrDefault(t *testing.T) {
	cfg := Load()

	if got := cfg.ThresholdOrDefault(nil); got != cfg.DefaultAlertThreshold {
		t.Errorf("ThresholdOrDefault(nil) = %v, want default", got)
	}
	// An explicit zero means alert on any move and must survive.
	zero := 0.0
	if got := cfg.ThresholdOrDefault(&zero); got != 0 {
		t.Errorf("ThresholdOrDefault(&0) = %v, want 0", got)
	}
	custom := 12.5
	if got := cfg.ThresholdOrDefault(&custom); got != 12.5 {
		t.Errorf("ThresholdOrDefault(&12.5) = %v, want 12.5", got)
	}
}
