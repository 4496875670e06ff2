// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"math"
	"os"

	"render/internal/buffer"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// exportFrames is how many frames are converted per encoder write.
const exportFrames = 4096

// ExportWAV encodes the rendered output as integer PCM WAV of bitDepth
// (16, 24 or 32) bits. Samples outside [-1, 1] are clipped.
func (e *Engine) ExportWAV(w io.WriteSeeker, bitDepth int) error {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: bit depth %d (want 16, 24 or 32)", ErrConfiguration, bitDepth)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	enc := wav.NewEncoder(w, e.format.SampleRate, bitDepth, Channels, 1)

	// Reusable buffer for format conversion.
	sampleBuf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: Channels,
			SampleRate:  e.format.SampleRate,
		},
		Data:           make([]int, exportFrames*Channels),
		SourceBitDepth: bitDepth,
	}
	full := float64(int64(1)<<(bitDepth-1) - 1)

	data := e.output.View()
	total := e.output.Len()
	chunk := make([][]float64, Channels)
	for start := 0; start < total; start += exportFrames {
		n := min(exportFrames, total-start)
		for c := range chunk {
			chunk[c] = data[c][start : start+n]
		}
		block, err := buffer.FromChannels(chunk)
		if err != nil {
			return fmt.Errorf("write wav: %w", err)
		}
		interleaved := block.FloatBuffer(e.format.SampleRate)
		sampleBuf.Data = sampleBuf.Data[:len(interleaved.Data)]
		for i, v := range interleaved.Data {
			sampleBuf.Data[i] = int(math.Round(math.Max(-1, math.Min(1, v)) * full))
		}
		if err := enc.Write(sampleBuf); err != nil {
			return fmt.Errorf("write wav: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish wav: %w", err)
	}
	logger.Infof("exported %d frames as %d-bit WAV", total, bitDepth)
	return nil
}

// ExportFile writes the rendered output to a WAV file at path.
func (e *Engine) ExportFile(path string, bitDepth int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := e.ExportWAV(file, bitDepth); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
