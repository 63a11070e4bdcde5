package memory

import (
	"runtime/debug"
	"testing"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{512 * 1024 * 1024, "512.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseRatio(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", DefaultMemoryRatio},
		{"0.5", 0.5},
		{"1", 1},
		{"0", DefaultMemoryRatio},
		{"1.5", DefaultMemoryRatio},
		{"half", DefaultMemoryRatio},
	}
	for _, tt := range tests {
		if got := parseRatio(tt.in); got != tt.want {
			t.Errorf("parseRatio(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConfigureFromEnv(t *testing.T) {
	prev := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(prev) })

	t.Run("nothing set", func(t *testing.T) {
		t.Setenv("GOMEMLIMIT", "")
		t.Setenv("MEMORY_LIMIT", "")
		result := ConfigureFromEnv()
		if result.Configured || result.Source != "none" {
			t.Errorf("ConfigureFromEnv() = %+v, want unconfigured", result)
		}
	})

	t.Run("container limit", func(t *testing.T) {
		t.Setenv("GOMEMLIMIT", "")
		t.Setenv("MEMORY_LIMIT", "1000000000")
		t.Setenv("MEMORY_RATIO", "0.5")
		result := ConfigureFromEnv()
		if !result.Configured || result.Source != "MEMORY_LIMIT" {
			t.Fatalf("ConfigureFromEnv() = %+v", result)
		}
		if result.GoMemLimit != 500000000 {
			t.Errorf("GoMemLimit = %d, want 500000000", result.GoMemLimit)
		}
		if got := debug.SetMemoryLimit(-1); got != 500000000 {
			t.Errorf("runtime limit = %d, want 500000000", got)
		}
	})

	t.Run("invalid container limit", func(t *testing.T) {
		t.Setenv("GOMEMLIMIT", "")
		t.Setenv("MEMORY_LIMIT", "lots")
		if result := ConfigureFromEnv(); result.Configured {
			t.Errorf("ConfigureFromEnv() = %+v, want unconfigured", result)
		}
	})
}
