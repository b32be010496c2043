package styx

import (
	"path/filepath"
	"testing"
	"time"
)

func TestParseSize(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"100", 100, false},
		{"100KB", 100 * 1024, false},
		{"1MB", 1024 * 1024, false},
		{"2GB", 2 * 1024 * 1024 * 1024, false},
		{"1T", 1024 * 1024 * 1024 * 1024, false},
		{"", 0, true},
		{"5XB", 0, true},
	}
	for _, c := range cases {
		got, err := ParseSize(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseSize(%q) expected error, got %d", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSize(%q) unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseSize(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"24h", 24 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"1y", 365 * 24 * time.Hour, false},
		{"", 0, true},
		{"3q", 0, true},
	}
	for _, c := range cases {
		got, err := ParseDuration(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseDuration(%q) expected error, got %v", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDuration(%q) unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestConfigFillDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Filename: filepath.Join(dir, "app.log")}
	if err := cfg.fillDefaults(); err != nil {
		t.Fatalf("fillDefaults: %v", err)
	}
	if cfg.MaxSize != 100*1024*1024 {
		t.Errorf("default MaxSize = %d, want 100MB", cfg.MaxSize)
	}
	if cfg.MaxFiles != 10 {
		t.Errorf("default MaxFiles = %d, want 10", cfg.MaxFiles)
	}
	if cfg.Strategy != "rename" {
		t.Errorf("default Strategy = %q, want rename", cfg.Strategy)
	}
	if cfg.RingCapacity != 4096 {
		t.Errorf("default RingCapacity = %d, want 4096", cfg.RingCapacity)
	}
	if cfg.FlushPeriod != time.Millisecond {
		t.Errorf("default FlushPeriod = %v, want 1ms", cfg.FlushPeriod)
	}
}

func TestConfigFillDefaultsRejectsEmptyFilename(t *testing.T) {
	cfg := &Config{}
	if err := cfg.fillDefaults(); err == nil {
		t.Fatal("fillDefaults should reject an empty Filename")
	}
}

func TestConfigFillDefaultsParsesStringFields(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Filename:       filepath.Join(dir, "app.log"),
		MaxSizeStr:     "5MB",
		FlushPeriodStr: "10ms",
		MaxFileAgeStr:  "7d",
	}
	if err := cfg.fillDefaults(); err != nil {
		t.Fatalf("fillDefaults: %v", err)
	}
	if cfg.MaxSize != 5*1024*1024 {
		t.Errorf("MaxSize = %d, want 5MB", cfg.MaxSize)
	}
	if cfg.FlushPeriod != 10*time.Millisecond {
		t.Errorf("FlushPeriod = %v, want 10ms", cfg.FlushPeriod)
	}
	if cfg.MaxFileAge != 7*24*time.Hour {
		t.Errorf("MaxFileAge = %v, want 7d", cfg.MaxFileAge)
	}
}

func TestConfigFillDefaultsZstdParams(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Filename: filepath.Join(dir, "app.log"), Writer: WriterZstd}
	if err := cfg.fillDefaults(); err != nil {
		t.Fatalf("fillDefaults: %v", err)
	}
	if cfg.ZstdParams != DefaultZstdParams() {
		t.Errorf("ZstdParams = %+v, want defaults", cfg.ZstdParams)
	}
}
