// Package locations reads the externally maintained location list.
package locations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/locali/placesync/internal/errors"
)

// Location is one entry of the list. PlaceRef is empty for locations that
// have no upstream counterpart.
type Location struct {
	ID       string
	PlaceRef string
	Name     string
	Address  string
}

// rawLocation accepts both the site's Italian keys and English aliases.
type rawLocation struct {
	ID        any    `json:"id" yaml:"id"`
	PlaceID   string `json:"place_id" yaml:"place_id"`
	PlaceRef  string `json:"placeRef" yaml:"placeRef"`
	Nome      string `json:"nome" yaml:"nome"`
	Name      string `json:"name" yaml:"name"`
	Indirizzo string `json:"indirizzo" yaml:"indirizzo"`
	Address   string `json:"address" yaml:"address"`
}

func (r rawLocation) location() Location {
	return Location{
		ID:       formatID(r.ID),
		PlaceRef: strings.TrimSpace(firstNonEmpty(r.PlaceID, r.PlaceRef)),
		Name:     firstNonEmpty(r.Nome, r.Name),
		Address:  firstNonEmpty(r.Indirizzo, r.Address),
	}
}

// Read loads the list at path. Files ending in .yaml or .yml are parsed as
// YAML, anything else as JSON. Any failure is fatal to a run.
func Read(path string) ([]Location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to read location list: %w", err)).
			Component("locations").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	var raw []rawLocation
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = decodeJSON(data, &raw)
	}
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to parse location list: %w", err)).
			Component("locations").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}

	out := make([]Location, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.location())
	}
	return out, nil
}

// decodeJSON keeps numeric ids exact.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func formatID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	case int:
		return strconv.Itoa(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(id)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
