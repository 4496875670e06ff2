// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "render.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

const project = `
log_level: debug
engine:
  sample_rate: 44100
  block_size: 256
  duration_seconds: 2
processors:
  - name: lead
    kind: plugin
    plugin: builtin:synth
    params:
      volume: 0.5
    notes:
      - {note: 60, velocity: 100, start: 0, duration: 1}
  - name: tone
    kind: oscillator
    frequency: 220
  - name: bus
    kind: mixer
graph:
  - name: lead
  - name: tone
  - name: bus
    inputs: [lead, tone]
output:
  path: out.wav
  bit_depth: 24
`

func TestLoadConfig_EmptyPath(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Engine.BlockSize != DefaultBlockSize {
		t.Errorf("block size = %d, want %d", cfg.Engine.BlockSize, DefaultBlockSize)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_Project(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig(writeTempConfig(t, project))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Engine.SampleRate != 44100 || cfg.Engine.BlockSize != 256 || cfg.Engine.Duration != 2 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if len(cfg.Processors) != 3 || len(cfg.Graph) != 3 {
		t.Fatalf("got %d processors, %d nodes", len(cfg.Processors), len(cfg.Graph))
	}
	lead, ok := cfg.Processor("lead")
	if !ok {
		t.Fatal("lead not found")
	}
	if lead.Params["volume"] != 0.5 || len(lead.Notes) != 1 || lead.Notes[0].Velocity != 100 {
		t.Errorf("lead = %+v", lead)
	}
	if got := cfg.Graph[2].Inputs; len(got) != 2 || got[0] != "lead" || got[1] != "tone" {
		t.Errorf("bus inputs = %v", got)
	}
	if cfg.Output.BitDepth != 24 {
		t.Errorf("bit depth = %d", cfg.Output.BitDepth)
	}
	// Unset sections keep their defaults.
	if cfg.Transport.UDPSendInterval != DefaultUDPSendInterval {
		t.Errorf("udp interval = %v", cfg.Transport.UDPSendInterval)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"sample rate too low", func(c *Config) { c.Engine.SampleRate = MinSampleRate - 1 }},
		{"sample rate too high", func(c *Config) { c.Engine.SampleRate = MaxSampleRate + 1 }},
		{"zero block", func(c *Config) { c.Engine.BlockSize = 0 }},
		{"huge block", func(c *Config) { c.Engine.BlockSize = MaxBlockSize + 1 }},
		{"negative duration", func(c *Config) { c.Engine.Duration = -1 }},
		{"endless duration", func(c *Config) { c.Engine.Duration = MaxRenderSeconds + 1 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"unnamed processor", func(c *Config) { c.Processors = []ProcessorConfig{{Kind: KindMixer}} }},
		{"unknown kind", func(c *Config) { c.Processors = []ProcessorConfig{{Name: "x", Kind: "theremin"}} }},
		{"oscillator without frequency", func(c *Config) {
			c.Processors = []ProcessorConfig{{Name: "x", Kind: KindOscillator}}
		}},
		{"playback without source", func(c *Config) {
			c.Processors = []ProcessorConfig{{Name: "x", Kind: KindPlayback}}
		}},
		{"plugin without id", func(c *Config) {
			c.Processors = []ProcessorConfig{{Name: "x", Kind: KindPlugin}}
		}},
		{"duplicate name", func(c *Config) {
			c.Processors = []ProcessorConfig{{Name: "x", Kind: KindMixer}, {Name: "x", Kind: KindMixer}}
		}},
		{"note out of range", func(c *Config) {
			c.Processors = []ProcessorConfig{{Name: "x", Kind: KindMixer, Notes: []NoteConfig{{Note: 128}}}}
		}},
		{"graph names unknown processor", func(c *Config) { c.Graph = []NodeConfig{{Name: "ghost"}} }},
		{"graph reads unknown processor", func(c *Config) {
			c.Processors = []ProcessorConfig{{Name: "x", Kind: KindMixer}}
			c.Graph = []NodeConfig{{Name: "x", Inputs: []string{"ghost"}}}
		}},
		{"bad bit depth", func(c *Config) { c.Output.BitDepth = 12 }},
		{"udp without address", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = ""
		}},
		{"udp without interval", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPSendInterval = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestDuplicateNamesAllowedWhenReplacing(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Engine.ReplaceExisting = true
	cfg.Processors = []ProcessorConfig{{Name: "x", Kind: KindMixer}, {Name: "x", Kind: KindMixer}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENV_DEBUG", "true")
	t.Setenv("ENV_LOG_LEVEL", "error")
	t.Setenv("ENV_SAMPLE_RATE", "96000")
	t.Setenv("ENV_BLOCK_SIZE", "128")
	t.Setenv("ENV_UDP_ENABLED", "true")
	t.Setenv("ENV_UDP_TARGET_ADDRESS", "10.0.0.1:7000")
	t.Setenv("ENV_UDP_SEND_INTERVAL", "100ms")

	cfg, err := Parse([]byte(project))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cfg.Debug || cfg.LogLevel != "error" {
		t.Errorf("debug/log level = %v/%q", cfg.Debug, cfg.LogLevel)
	}
	if cfg.Engine.SampleRate != 96000 || cfg.Engine.BlockSize != 128 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	tr := cfg.Transport
	if !tr.UDPEnabled || tr.UDPTargetAddress != "10.0.0.1:7000" || tr.UDPSendInterval != 100*time.Millisecond {
		t.Errorf("transport = %+v", tr)
	}
}

func TestEnvOverrideInvalidated(t *testing.T) {
	t.Setenv("ENV_BLOCK_SIZE", "100000")
	if _, err := Parse([]byte(project)); !errors.Is(err, ErrInvalid) {
		t.Errorf("Parse() = %v, want ErrInvalid", err)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()
	cfg, err := Parse([]byte(project))
	if err != nil {
		t.Fatal(err)
	}
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	again, err := Parse(data)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if len(again.Processors) != len(cfg.Processors) || again.Engine != cfg.Engine {
		t.Errorf("round trip changed config: %+v vs %+v", again.Engine, cfg.Engine)
	}
}
