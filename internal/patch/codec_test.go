// SPDX-License-Identifier: MIT
package patch

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

var sample = Patch{{0, 440}, {3, -0.25}, {0, 1e-9}}

func equalPatch(a, b Patch) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCodecs(t *testing.T) {
	codecs := []struct {
		name string
		enc  func(*bytes.Buffer, Patch) error
		dec  func(*bytes.Buffer) (Patch, error)
	}{
		{"json", func(b *bytes.Buffer, p Patch) error { return EncodeJSON(b, p) }, func(b *bytes.Buffer) (Patch, error) { return DecodeJSON(b) }},
		{"yaml", func(b *bytes.Buffer, p Patch) error { return EncodeYAML(b, p) }, func(b *bytes.Buffer) (Patch, error) { return DecodeYAML(b) }},
		{"binary", func(b *bytes.Buffer, p Patch) error { return EncodeBinary(b, p) }, func(b *bytes.Buffer) (Patch, error) { return DecodeBinary(b) }},
	}

	for _, c := range codecs {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := c.enc(&buf, sample); err != nil {
				t.Fatal(err)
			}
			got, err := c.dec(&buf)
			if err != nil {
				t.Fatal(err)
			}
			if !equalPatch(got, sample) {
				t.Errorf("decoded %v, want %v", got, sample)
			}
		})
	}
}

func TestJSONShape(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, Patch{{1, 0.5}, {2, 3}}); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[[1,0.5],[2,3]]" {
		t.Errorf("JSON = %s", got)
	}

	buf.Reset()
	_ = EncodeJSON(&buf, nil)
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("empty patch JSON = %s", got)
	}
}

func TestDecodeJSONErrors(t *testing.T) {
	tests := []string{
		`[[1]]`,
		`[[1,2,3]]`,
		`[[1.5,2]]`,
		`[[-1,2]]`,
		`{"index":1}`,
		`[["a",1]]`,
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if _, err := DecodeJSON(strings.NewReader(in)); !errors.Is(err, ErrFormat) {
				t.Errorf("expected ErrFormat, got %v", err)
			}
		})
	}
}

func TestDecodeYAMLEmpty(t *testing.T) {
	p, err := DecodeYAML(strings.NewReader(""))
	if err != nil || len(p) != 0 {
		t.Errorf("DecodeYAML(empty) = %v, %v", p, err)
	}
	if _, err := DecodeYAML(strings.NewReader("- index: -2\n  value: 1\n")); !errors.Is(err, ErrFormat) {
		t.Errorf("negative index should fail, got %v", err)
	}
}

func TestDecodeBinaryErrors(t *testing.T) {
	var good bytes.Buffer
	_ = EncodeBinary(&good, sample)
	raw := good.Bytes()

	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("XPATCH"), raw[6:]...)},
		{"truncated", raw[:len(raw)-3]},
		{"future version", append(append([]byte("RPATCH"), 9, 0, 0, 0), raw[10:]...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeBinary(bytes.NewReader(tt.in)); !errors.Is(err, ErrFormat) {
				t.Errorf("expected ErrFormat, got %v", err)
			}
		})
	}
}
