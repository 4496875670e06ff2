// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the render engine.
const (
	DefaultSampleRate = 48000 // Hz
	DefaultBlockSize  = 512   // frames per render block
	DefaultDuration   = 4.0   // seconds rendered when a project names none
	DefaultBitDepth   = 16    // WAV export
	DefaultLogLevel   = "info"

	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30Hz

	// Engine limits.
	MinSampleRate = 8000   // Hz
	MaxSampleRate = 192000 // Hz
	MaxBlockSize  = 8192   // frames

	// MaxRenderSeconds bounds a single render call.
	MaxRenderSeconds = 600.0
)

// Processor kinds accepted in a project file.
const (
	KindOscillator = "oscillator"
	KindPlayback   = "playback"
	KindPlugin     = "plugin"
	KindMixer      = "mixer"
)

// Config is a render project: engine format, the processors to create, how
// they are wired and where the result goes.
type Config struct {
	Debug      bool              `yaml:"debug"`     // Forces debug logging.
	LogLevel   string            `yaml:"log_level"` // "debug", "info", "warn" or "error".
	Engine     EngineConfig      `yaml:"engine"`
	Processors []ProcessorConfig `yaml:"processors"`
	Graph      []NodeConfig      `yaml:"graph"`
	Output     OutputConfig      `yaml:"output"`
	Transport  TransportConfig   `yaml:"transport"`
}

// EngineConfig holds the render format.
type EngineConfig struct {
	SampleRate      int     `yaml:"sample_rate"`
	BlockSize       int     `yaml:"block_size"`
	Duration        float64 `yaml:"duration_seconds"` // Length of a project render.
	ReplaceExisting bool    `yaml:"replace_existing"` // Replace processors on name collision instead of failing.
}

// ProcessorConfig describes one processor. Which fields apply depends on Kind.
type ProcessorConfig struct {
	Name      string             `yaml:"name"`
	Kind      string             `yaml:"kind"`
	Frequency float64            `yaml:"frequency,omitempty"` // oscillator
	Source    string             `yaml:"source,omitempty"`    // playback: audio file path
	Plugin    string             `yaml:"plugin,omitempty"`    // plugin: "builtin:<name>" or a file path
	Params    map[string]float64 `yaml:"params,omitempty"`    // parameter name to value
	Patch     string             `yaml:"patch,omitempty"`     // patch file applied after Params
	MIDI      string             `yaml:"midi,omitempty"`      // standard MIDI file
	Notes     []NoteConfig       `yaml:"notes,omitempty"`
}

// NoteConfig is one scheduled MIDI note. Times are seconds.
type NoteConfig struct {
	Note     int     `yaml:"note"`
	Velocity int     `yaml:"velocity"`
	Start    float64 `yaml:"start"`
	Duration float64 `yaml:"duration"`
}

// NodeConfig wires a processor to the processors it reads from.
type NodeConfig struct {
	Name   string   `yaml:"name"`
	Inputs []string `yaml:"inputs,omitempty"`
}

// OutputConfig controls where rendered audio is written.
type OutputConfig struct {
	Path     string `yaml:"path"` // WAV file; empty skips export.
	BitDepth int    `yaml:"bit_depth"`
}

// TransportConfig holds settings for publishing render reports.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
	WebSocketAddress string        `yaml:"websocket_address,omitempty"` // Empty disables the websocket server.
	LogReports       bool          `yaml:"log_reports"`
}

// Default returns a configuration with every field at its default and no
// processors.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Engine: EngineConfig{
			SampleRate: DefaultSampleRate,
			BlockSize:  DefaultBlockSize,
			Duration:   DefaultDuration,
		},
		Output: OutputConfig{
			BitDepth: DefaultBitDepth,
		},
		Transport: TransportConfig{
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
	}
}

// Processor returns the processor entry named name.
func (c *Config) Processor(name string) (*ProcessorConfig, bool) {
	for i := range c.Processors {
		if c.Processors[i].Name == name {
			return &c.Processors[i], true
		}
	}
	return nil, false
}
