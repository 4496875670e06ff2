// SPDX-License-Identifier: MIT
package patch

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"
)

const (
	binaryMagic   = "RPATCH"
	binaryVersion = uint32(1)
)

// EncodeJSON writes p as [[index, value], ...].
func EncodeJSON(w io.Writer, p Patch) error {
	if p == nil {
		p = Patch{}
	}
	return json.NewEncoder(w).Encode(p)
}

// DecodeJSON reads the form written by EncodeJSON.
func DecodeJSON(r io.Reader) (Patch, error) {
	var p Patch
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return p, nil
}

// EncodeYAML writes p as a list of {index, value} mappings.
func EncodeYAML(w io.Writer, p Patch) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode([]Entry(p)); err != nil {
		return err
	}
	return enc.Close()
}

// DecodeYAML reads the form written by EncodeYAML.
func DecodeYAML(r io.Reader) (Patch, error) {
	var entries []Entry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		if err == io.EOF {
			return Patch{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	for i, e := range entries {
		if e.Index < 0 {
			return nil, fmt.Errorf("%w: entry %d has negative index", ErrFormat, i)
		}
	}
	return Patch(entries), nil
}

// EncodeBinary writes the magic header, a version, the entry count and then
// (int32 index, float64 value) pairs, all little endian.
func EncodeBinary(w io.Writer, p Patch) error {
	var buf bytes.Buffer
	buf.WriteString(binaryMagic)
	_ = binary.Write(&buf, binary.LittleEndian, binaryVersion)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(p)))
	for _, e := range p {
		if e.Index < 0 || e.Index > math.MaxInt32 {
			return fmt.Errorf("%w: index %d does not fit int32", ErrFormat, e.Index)
		}
		_ = binary.Write(&buf, binary.LittleEndian, int32(e.Index))
		_ = binary.Write(&buf, binary.LittleEndian, e.Value)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// DecodeBinary reads the form written by EncodeBinary.
func DecodeBinary(r io.Reader) (Patch, error) {
	header := make([]byte, len(binaryMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if string(header) != binaryMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrFormat, header)
	}

	var version, count uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if version > binaryVersion {
		return nil, fmt.Errorf("%w: version %d is newer than supported version %d", ErrFormat, version, binaryVersion)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	// Grow as entries arrive so a corrupt count cannot force a huge allocation.
	p := make(Patch, 0, min(count, 1024))
	for i := range count {
		var index int32
		var value float64
		if err := binary.Read(r, binary.LittleEndian, &index); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrFormat, i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrFormat, i, err)
		}
		if index < 0 {
			return nil, fmt.Errorf("%w: entry %d has negative index", ErrFormat, i)
		}
		p = append(p, Entry{Index: int(index), Value: value})
	}
	return p, nil
}
