// SPDX-License-Identifier: MIT
package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadFile decodes the patch at path. The codec is chosen by extension:
// .json, .yaml/.yml, or .rpatch for the binary form.
func ReadFile(path string) (Patch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return DecodeJSON(f)
	case ".yaml", ".yml":
		return DecodeYAML(f)
	case ".rpatch":
		return DecodeBinary(f)
	default:
		return nil, fmt.Errorf("%w: unknown patch extension %q", ErrFormat, ext)
	}
}

// WriteFile encodes p to path using the codec ReadFile would pick.
func WriteFile(path string, p Patch) error {
	var encode func(*os.File, Patch) error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		encode = func(f *os.File, p Patch) error { return EncodeJSON(f, p) }
	case ".yaml", ".yml":
		encode = func(f *os.File, p Patch) error { return EncodeYAML(f, p) }
	case ".rpatch":
		encode = func(f *os.File, p Patch) error { return EncodeBinary(f, p) }
	default:
		return fmt.Errorf("%w: unknown patch extension %q", ErrFormat, ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
