// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"render/internal/log"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a configuration that fails validation.
var ErrInvalid = errors.New("invalid configuration")

// DefaultPath is the project file looked up when LoadConfig gets no path.
const DefaultPath = "render.yaml"

// LoadConfig loads a project from the YAML file at path. If path is empty and
// DefaultPath does not exist, the built-in defaults are used. Environment
// overrides are applied after loading and the result is validated.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			cfg := Default()
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML project over the defaults, applies environment
// overrides and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Marshal encodes c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks the engine format, processor entries, graph references and
// output settings.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok && c.LogLevel != "" {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
	}

	e := c.Engine
	if e.SampleRate < MinSampleRate || e.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: engine.sample_rate %d outside [%d, %d]", ErrInvalid, e.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if e.BlockSize <= 0 || e.BlockSize > MaxBlockSize {
		return fmt.Errorf("%w: engine.block_size %d outside [1, %d]", ErrInvalid, e.BlockSize, MaxBlockSize)
	}
	if math.IsNaN(e.Duration) || e.Duration < 0 || e.Duration > MaxRenderSeconds {
		return fmt.Errorf("%w: engine.duration_seconds %v outside [0, %g]", ErrInvalid, e.Duration, MaxRenderSeconds)
	}

	names := make(map[string]bool, len(c.Processors))
	for i, p := range c.Processors {
		if p.Name == "" {
			return fmt.Errorf("%w: processors[%d] has no name", ErrInvalid, i)
		}
		if names[p.Name] && !e.ReplaceExisting {
			return fmt.Errorf("%w: processor %q declared twice", ErrInvalid, p.Name)
		}
		names[p.Name] = true
		if err := p.validate(); err != nil {
			return err
		}
	}

	for _, n := range c.Graph {
		if !names[n.Name] {
			return fmt.Errorf("%w: graph node %q is not a declared processor", ErrInvalid, n.Name)
		}
		for _, in := range n.Inputs {
			if !names[in] {
				return fmt.Errorf("%w: graph node %q reads undeclared processor %q", ErrInvalid, n.Name, in)
			}
		}
	}

	switch c.Output.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: output.bit_depth %d (want 16, 24 or 32)", ErrInvalid, c.Output.BitDepth)
	}

	t := c.Transport
	if t.UDPEnabled {
		if t.UDPTargetAddress == "" {
			return fmt.Errorf("%w: transport.udp_target_address must be set when UDP is enabled", ErrInvalid)
		}
		if t.UDPSendInterval <= 0 {
			return fmt.Errorf("%w: transport.udp_send_interval must be positive when UDP is enabled", ErrInvalid)
		}
	}
	return nil
}

func (p *ProcessorConfig) validate() error {
	switch p.Kind {
	case KindOscillator:
		if p.Frequency <= 0 {
			return fmt.Errorf("%w: oscillator %q needs a positive frequency", ErrInvalid, p.Name)
		}
	case KindPlayback:
		if p.Source == "" {
			return fmt.Errorf("%w: playback %q needs a source file", ErrInvalid, p.Name)
		}
	case KindPlugin:
		if p.Plugin == "" {
			return fmt.Errorf("%w: plugin %q needs a plugin identifier", ErrInvalid, p.Name)
		}
	case KindMixer:
	default:
		return fmt.Errorf("%w: processor %q has unknown kind %q", ErrInvalid, p.Name, p.Kind)
	}
	for _, n := range p.Notes {
		if n.Note < 0 || n.Note > 127 || n.Velocity < 0 || n.Velocity > 127 {
			return fmt.Errorf("%w: processor %q note %d/%d out of MIDI range", ErrInvalid, p.Name, n.Note, n.Velocity)
		}
		if n.Start < 0 || n.Duration < 0 {
			return fmt.Errorf("%w: processor %q note times must be >= 0", ErrInvalid, p.Name)
		}
	}
	return nil
}

// applyEnvOverrides applies ENV_* variables on top of the loaded values.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			log.Infof("configuration: overriding debug from env: %v", bVal)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		log.Infof("configuration: overriding log_level from env: %s", val)
	}

	// ENV_SAMPLE_RATE
	if val, ok := os.LookupEnv("ENV_SAMPLE_RATE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Engine.SampleRate = n
			log.Infof("configuration: overriding engine.sample_rate from env: %d", n)
		}
	}
	// ENV_BLOCK_SIZE
	if val, ok := os.LookupEnv("ENV_BLOCK_SIZE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Engine.BlockSize = n
			log.Infof("configuration: overriding engine.block_size from env: %d", n)
		}
	}

	// ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
			log.Infof("configuration: overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		log.Infof("configuration: overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			log.Infof("configuration: overriding transport.udp_send_interval from env: %s", dur)
		}
	}
}
