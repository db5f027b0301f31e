// Package snapshot reads entity snapshots from YAML, TOML or JSON files.
//
// A file holds either one entity or a list of them:
//
//	model: Products
//	entities:
//	  - id: "1"
//	    title: Widget
//	    price: 19.99
//
// Every key other than id is a field value. A top-level model is used when
// the caller does not pass a kind.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"trustscore/internal/domain/reliability"
	"trustscore/internal/errs"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

const (
	keyID       = "id"
	keyModel    = "model"
	keyEntities = "entities"
)

// FormatFromPath picks the decoder by file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported snapshot file extension %q", filepath.Ext(path))
	}
}

// LoadFile reads path and returns its entities. An empty kind defers to the
// file's model key.
func LoadFile(path string, kind reliability.ModelKind) ([]reliability.Record, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(err, "open snapshot file")
	}
	defer f.Close()

	records, err := Decode(f, format, kind)
	if err != nil {
		return nil, errs.Wrapf(err, "load %s", path)
	}
	return records, nil
}

func Decode(r io.Reader, format Format, kind reliability.ModelKind) ([]reliability.Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(err, "read snapshot")
	}

	var doc any
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(raw, &doc)
	case FormatTOML:
		var m map[string]any
		err = toml.Unmarshal(raw, &m)
		doc = m
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		err = dec.Decode(&doc)
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", format)
	}
	if err != nil {
		return nil, errs.Wrapf(err, "decode %s snapshot", format)
	}

	return toRecords(doc, kind)
}

func toRecords(doc any, kind reliability.ModelKind) ([]reliability.Record, error) {
	var items []any
	switch d := doc.(type) {
	case []any:
		items = d
	case map[string]any:
		if name, ok := d[keyModel].(string); ok && kind == "" {
			parsed, err := reliability.ParseModelKind(name)
			if err != nil {
				return nil, err
			}
			kind = parsed
		}
		if list, ok := d[keyEntities]; ok {
			l, ok := list.([]any)
			if !ok {
				return nil, fmt.Errorf("%s must be a list", keyEntities)
			}
			items = l
		} else {
			entity := make(map[string]any, len(d))
			for k, v := range d {
				if k != keyModel {
					entity[k] = v
				}
			}
			items = []any{entity}
		}
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected snapshot document %T", doc)
	}

	if kind == "" {
		return nil, fmt.Errorf("%w: snapshot has no model and none was given", reliability.ErrPrecondition)
	}

	records := make([]reliability.Record, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("entity %d is %T, want a mapping", i, item)
		}
		rec := reliability.Record{Kind: kind, Fields: make(map[string]any, len(m))}
		for k, v := range m {
			if k == keyID {
				rec.ID = idString(v)
				continue
			}
			rec.Fields[k] = v
		}
		records = append(records, rec)
	}
	return records, nil
}

func idString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
