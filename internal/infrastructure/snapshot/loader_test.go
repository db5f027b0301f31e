package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trustscore/internal/domain/reliability"
)

func TestDecodeFormats(t *testing.T) {
	cases := []struct {
		name   string
		format Format
		body   string
	}{
		{
			name:   "yaml list",
			format: FormatYAML,
			body: `model: products
entities:
  - id: 1
    title: Widget
    price: 19.99
    currency: USD
  - id: "2"
    title: Gadget
`,
		},
		{
			name:   "toml list",
			format: FormatTOML,
			body: `model = "Products"

[[entities]]
id = 1
title = "Widget"
price = 19.99
currency = "USD"

[[entities]]
id = "2"
title = "Gadget"
`,
		},
		{
			name:   "json list",
			format: FormatJSON,
			body:   `{"model":"Products","entities":[{"id":1,"title":"Widget","price":19.99,"currency":"USD"},{"id":"2","title":"Gadget"}]}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := Decode(strings.NewReader(tc.body), tc.format, "")
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if len(records) != 2 {
				t.Fatalf("Decode() len = %d, want 2", len(records))
			}
			first := records[0]
			if first.Kind != reliability.ModelProducts || first.ID != "1" {
				t.Fatalf("first = %s/%s", first.Kind, first.ID)
			}
			if v, _ := first.Value("title"); v != "Widget" {
				t.Fatalf("title = %#v", v)
			}
			if _, ok := first.Value("id"); ok {
				t.Fatalf("id should not be a field")
			}

			scorer := reliability.NewScorer(reliability.DefaultProductsConfig(), nil)
			if got := scorer.ScoreField(first, "price", 0.03); got.Score != 1 {
				t.Fatalf("price score = %v (%s)", got.Score, got.Notes)
			}
			if records[1].ID != "2" {
				t.Fatalf("second id = %q", records[1].ID)
			}
		})
	}
}

func TestDecodeSingleEntityWithExplicitKind(t *testing.T) {
	records, err := Decode(strings.NewReader("id: 9\ntitle: Solo\n"), FormatYAML, reliability.ModelArticles)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(records) != 1 || records[0].Kind != reliability.ModelArticles || records[0].ID != "9" {
		t.Fatalf("Decode() = %#v", records)
	}
}

func TestDecodeRequiresKind(t *testing.T) {
	_, err := Decode(strings.NewReader(`[{"id":"1"}]`), FormatJSON, "")
	if !errors.Is(err, reliability.ErrPrecondition) {
		t.Fatalf("Decode() error = %v, want ErrPrecondition", err)
	}

	_, err = Decode(strings.NewReader("model: Orders\nid: 1\n"), FormatYAML, "")
	if !errors.Is(err, reliability.ErrUnknownModel) {
		t.Fatalf("Decode() error = %v, want ErrUnknownModel", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.yml")
	if err := os.WriteFile(path, []byte("model: Users\nentities:\n  - id: u1\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	records, err := LoadFile(path, "")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(records) != 1 || records[0].Kind != reliability.ModelUsers {
		t.Fatalf("LoadFile() = %#v", records)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "x.csv"), ""); err == nil {
		t.Fatalf("LoadFile(.csv) expected error")
	}
}
