// SPDX-License-Identifier: MIT
package transport

// Transport defines a generic interface for sending render reports or other
// events to observers. Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Report summarizes one render call.
type Report struct {
	Sequence   uint32    `json:"sequence"`
	Timestamp  int64     `json:"timestamp"` // nanoseconds since epoch
	SampleRate int       `json:"sampleRate"`
	Rendered   int64     `json:"rendered"` // samples produced by this call
	Total      int64     `json:"total"`    // samples held by the engine
	Peak       []float64 `json:"peak"`     // per channel
	RMS        []float64 `json:"rms"`      // per channel
	Dominant   float64   `json:"dominantHz,omitempty"`

	Bands map[string]float64 `json:"bands,omitempty"` // mean spectral energy per band
}

// Multi fans a message out to several transports. Send reports the first
// error but always tries every transport.
type Multi []Transport

func (m Multi) Send(data any) error {
	var first error
	for _, t := range m {
		if err := t.Send(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, t := range m {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ Transport = Multi(nil)
