// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"render/internal/transport"
)

// Publisher packs render reports into binary datagrams and sends them at
// most once per interval. Only the latest report is kept between ticks, so a
// burst of renders produces one packet.
type Publisher struct {
	sender   *Sender
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	pending     *transport.Report
	sequenceNum uint32

	packetBuffer *bytes.Buffer
}

// NewPublisher wraps sender. An interval <= 0 defaults to 16ms.
func NewPublisher(interval time.Duration, sender *Sender) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("udp publisher: sender cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		logger.Warnf("invalid publish interval, defaulting to %s", interval)
	}
	return &Publisher{
		sender:       sender,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start launches the publishing goroutine. Calling Start twice is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker, done := p.ticker, p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.flush()
			case <-done:
				return
			}
		}
	}()
}

// Stop ends the publishing goroutine and sends any pending report.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	p.flush()
	return nil
}

// Send stores a report for the next tick. Values other than Report and
// *Report are ignored.
func (p *Publisher) Send(data any) error {
	var r transport.Report
	switch v := data.(type) {
	case transport.Report:
		r = v
	case *transport.Report:
		if v == nil {
			return nil
		}
		r = *v
	default:
		return nil
	}
	p.mu.Lock()
	p.pending = &r
	p.mu.Unlock()
	return nil
}

// Close stops publishing and closes the sender.
func (p *Publisher) Close() error {
	_ = p.Stop()
	return p.sender.Close()
}

func (p *Publisher) flush() {
	p.mu.Lock()
	r := p.pending
	p.pending = nil
	if r == nil {
		p.mu.Unlock()
		return
	}
	p.sequenceNum++
	r.Sequence = p.sequenceNum
	p.packetBuffer.Reset()
	err := EncodeReport(p.packetBuffer, r)
	packet := bytes.Clone(p.packetBuffer.Bytes())
	p.mu.Unlock()

	if err != nil {
		logger.Errorf("pack report: %v", err)
		return
	}
	if err := p.sender.Send(packet); err != nil {
		logger.Warnf("send report %d: %v", r.Sequence, err)
		return
	}
	logger.Debugf("sent report %d (%d bytes)", r.Sequence, len(packet))
}

/*
Report packet layout, BigEndian:

	+-----------------+---------+-------+-----------------------------+
	| Field           | Type    | Bytes | Description                 |
	+-----------------+---------+-------+-----------------------------+
	| Sequence        | uint32  | 4     | Monotonically increasing    |
	| Timestamp       | int64   | 8     | Nanoseconds since epoch     |
	| SampleRate      | uint32  | 4     |                             |
	| Rendered        | int64   | 8     | Samples in this render call |
	| Total           | int64   | 8     | Samples held by the engine  |
	| Dominant        | float32 | 4     | Hz, 0 when unknown          |
	| Channels        | uint16  | 2     | N                           |
	| Peak, RMS pairs | float32 | N * 8 | Per channel                 |
	+-----------------+---------+-------+-----------------------------+
*/

// EncodeReport writes r in the packet layout above.
func EncodeReport(w *bytes.Buffer, r *transport.Report) error {
	if len(r.Peak) != len(r.RMS) {
		return fmt.Errorf("report has %d peaks and %d rms values", len(r.Peak), len(r.RMS))
	}
	fields := []any{
		r.Sequence,
		r.Timestamp,
		uint32(r.SampleRate),
		r.Rendered,
		r.Total,
		float32(r.Dominant),
		uint16(len(r.Peak)),
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.BigEndian, f); err != nil {
			return err
		}
	}
	for ch := range r.Peak {
		if err := binary.Write(w, binary.BigEndian, [2]float32{float32(r.Peak[ch]), float32(r.RMS[ch])}); err != nil {
			return err
		}
	}
	return nil
}

// DecodeReport parses a packet written by EncodeReport.
func DecodeReport(packet []byte) (transport.Report, error) {
	rd := bytes.NewReader(packet)
	var (
		r        transport.Report
		rate     uint32
		dominant float32
		channels uint16
	)
	for _, f := range []any{&r.Sequence, &r.Timestamp, &rate, &r.Rendered, &r.Total, &dominant, &channels} {
		if err := binary.Read(rd, binary.BigEndian, f); err != nil {
			return r, fmt.Errorf("decode report header: %w", err)
		}
	}
	r.SampleRate = int(rate)
	r.Dominant = float64(dominant)
	r.Peak = make([]float64, channels)
	r.RMS = make([]float64, channels)
	for ch := range int(channels) {
		var pair [2]float32
		if err := binary.Read(rd, binary.BigEndian, &pair); err != nil {
			return r, fmt.Errorf("decode report channel %d: %w", ch, err)
		}
		r.Peak[ch], r.RMS[ch] = float64(pair[0]), float64(pair[1])
	}
	return r, nil
}

var _ transport.Transport = (*Publisher)(nil)
