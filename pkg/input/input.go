// Package input decodes roster files.
package input

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/rota/core/model"
)

// Format is a roster file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported roster file %q: use .yaml, .yml or .json", path)
	}
}

// Load reads and validates the roster at path.
func Load(path string) (model.Roster, error) {
	f, err := FormatOf(path)
	if err != nil {
		return model.Roster{}, err
	}
	file, err := os.Open(path)
	if err != nil {
		return model.Roster{}, err
	}
	defer func() { _ = file.Close() }()
	r, err := Decode(file, f)
	if err != nil {
		return model.Roster{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Decode reads a roster in format f and validates it. Unknown fields are
// rejected.
func Decode(rd io.Reader, f Format) (model.Roster, error) {
	var r model.Roster
	switch f {
	case FormatYAML:
		dec := yaml.NewDecoder(rd)
		dec.KnownFields(true)
		if err := dec.Decode(&r); err != nil && err != io.EOF {
			return model.Roster{}, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(rd)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&r); err != nil {
			return model.Roster{}, fmt.Errorf("decode json: %w", err)
		}
	default:
		return model.Roster{}, fmt.Errorf("unknown format %q", f)
	}
	if err := r.Validate(); err != nil {
		return model.Roster{}, err
	}
	return r, nil
}

// Encode writes r in format f.
func Encode(w io.Writer, r model.Roster, f Format) error {
	switch f {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

// WithPinned returns r with the pinned shifts added to its mandatory
// shifts. Pins of workers that are not in the roster are skipped and
// returned separately.
func WithPinned(r model.Roster, pinned []model.MandatoryShift) (model.Roster, []model.MandatoryShift) {
	known := make(map[string]bool, len(r.Workers))
	for _, w := range r.Workers {
		known[w.ID] = true
	}
	have := make(map[model.MandatoryShift]bool, len(r.Mandatory))
	for _, m := range r.Mandatory {
		have[m] = true
	}
	out := r
	out.Mandatory = append([]model.MandatoryShift(nil), r.Mandatory...)
	var skipped []model.MandatoryShift
	for _, p := range pinned {
		switch {
		case !known[p.WorkerID]:
			skipped = append(skipped, p)
		case !have[p]:
			out.Mandatory = append(out.Mandatory, p)
			have[p] = true
		}
	}
	return out, skipped
}
