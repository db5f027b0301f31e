package reliability

import (
	"errors"
	"math"
	"testing"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func basePayload() ChecksumPayload {
	return ChecksumPayload{
		Model:             "Products",
		ForeignKey:        "42",
		ToTotalScore:      0.6,
		ToFieldScoresJSON: strPtr(`{"title": {"weight": 0.08, "score": 1, "notes": "Title present and valid", "max_score": 1}}`),
		Source:            "system",
		ActorService:      strPtr("cli:recalc"),
		Created:           "2026-01-02T03:04:05Z",
	}
}

func TestComputeChecksum_KnownVector(t *testing.T) {
	got, err := ComputeChecksum(basePayload())
	if err != nil {
		t.Fatalf("ComputeChecksum() error = %v", err)
	}
	const want = "6ebd1bb9a1971114af3a66d261fb7463446798ec70a14a90f17c1af2370ad7eb"
	if got != want {
		t.Fatalf("ComputeChecksum() = %s, want %s", got, want)
	}
	if !ValidChecksumFormat(got) {
		t.Fatalf("checksum %q has invalid format", got)
	}
}

func TestComputeChecksum_IgnoresKeyOrderAndWhitespace(t *testing.T) {
	a := basePayload()
	b := basePayload()
	b.ToFieldScoresJSON = strPtr("{\n  \"title\": {\"max_score\":1,\"notes\":\"Title present and valid\",\"score\":1,\"weight\":0.08}\n}")

	sumA, err := ComputeChecksum(a)
	if err != nil {
		t.Fatalf("ComputeChecksum(a) error = %v", err)
	}
	sumB, err := ComputeChecksum(b)
	if err != nil {
		t.Fatalf("ComputeChecksum(b) error = %v", err)
	}
	if sumA != sumB {
		t.Fatalf("checksums differ: %s vs %s", sumA, sumB)
	}
}

func TestComputeChecksum_SingleFieldMutations(t *testing.T) {
	base, err := ComputeChecksum(basePayload())
	if err != nil {
		t.Fatalf("ComputeChecksum() error = %v", err)
	}

	mutations := map[string]func(*ChecksumPayload){
		"model":                  func(p *ChecksumPayload) { p.Model = "Articles" },
		"foreign_key":            func(p *ChecksumPayload) { p.ForeignKey = "43" },
		"from_total_score":       func(p *ChecksumPayload) { p.FromTotalScore = floatPtr(0.5) },
		"to_total_score":         func(p *ChecksumPayload) { p.ToTotalScore = 0.601 },
		"from_field_scores_json": func(p *ChecksumPayload) { p.FromFieldScoresJSON = strPtr(`{}`) },
		"to_field_scores_json":   func(p *ChecksumPayload) { p.ToFieldScoresJSON = strPtr(`{"title":{"score":0}}`) },
		"source":                 func(p *ChecksumPayload) { p.Source = "admin" },
		"actor_user_id":          func(p *ChecksumPayload) { p.ActorUserID = strPtr("7") },
		"actor_service":          func(p *ChecksumPayload) { p.ActorService = nil },
		"created":                func(p *ChecksumPayload) { p.Created = "2026-01-02T03:04:06Z" },
	}

	seen := map[string]string{base: "base"}
	for name, mutate := range mutations {
		p := basePayload()
		mutate(&p)
		got, err := ComputeChecksum(p)
		if err != nil {
			t.Fatalf("ComputeChecksum(%s) error = %v", name, err)
		}
		if prev, dup := seen[got]; dup {
			t.Fatalf("mutating %s produced the same digest as %s", name, prev)
		}
		seen[got] = name
	}
}

func TestComputeChecksum_NullAndUnparsableCanonicalizeAlike(t *testing.T) {
	p := basePayload()
	p.FromFieldScoresJSON = nil
	withNil, err := ComputeChecksum(p)
	if err != nil {
		t.Fatalf("ComputeChecksum(nil) error = %v", err)
	}

	p.FromFieldScoresJSON = strPtr("not json")
	withGarbage, err := ComputeChecksum(p)
	if err != nil {
		t.Fatalf("ComputeChecksum(garbage) error = %v", err)
	}
	if withNil != withGarbage {
		t.Fatalf("null and unparsable JSON should hash alike")
	}
}

func TestComputeChecksum_UnencodableScore(t *testing.T) {
	p := basePayload()
	p.ToTotalScore = math.NaN()
	_, err := ComputeChecksum(p)
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("ComputeChecksum(NaN) error = %v, want ErrChecksum", err)
	}
}

func TestCanonicalizeJSON(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{(*string)(nil), "null"},
		{"", "null"},
		{"null", "null"},
		{`{"b":1,"a":{"d":2,"c":3}}`, `{"a":{"c":3,"d":2},"b":1}`},
		{`{"url":"https://x.test/a?b=<c>&d","name":"Müller"}`, `{"name":"Müller","url":"https://x.test/a?b=<c>&d"}`},
		{[]byte(`[3, 1, 2]`), `[3,1,2]`},
		{map[string]any{"z": true, "a": nil}, `{"a":null,"z":true}`},
	}
	for _, tc := range cases {
		got, err := CanonicalizeJSON(tc.in)
		if err != nil {
			t.Fatalf("CanonicalizeJSON(%#v) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("CanonicalizeJSON(%#v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestChecksumsEqual(t *testing.T) {
	sum, _ := ComputeChecksum(basePayload())
	if !ChecksumsEqual(sum, sum) {
		t.Fatalf("ChecksumsEqual(x, x) = false")
	}
	other := basePayload()
	other.Source = "admin"
	otherSum, _ := ComputeChecksum(other)
	if ChecksumsEqual(sum, otherSum) {
		t.Fatalf("ChecksumsEqual() matched different digests")
	}
}

func TestFieldScoresSnapshotRoundTrip(t *testing.T) {
	in := []FieldScore{
		{Field: "title", Score: 1, Weight: 0.08, MaxScore: 1, Notes: "Title present and valid"},
		{Field: "alt_text", Score: 0.3, Weight: 0.01, MaxScore: 1, Notes: "Alt text <short>"},
	}
	raw, err := MarshalFieldScores(in)
	if err != nil {
		t.Fatalf("MarshalFieldScores() error = %v", err)
	}
	want := `{"alt_text":{"score":0.3,"weight":0.01,"max_score":1,"notes":"Alt text <short>"},"title":{"score":1,"weight":0.08,"max_score":1,"notes":"Title present and valid"}}`
	if raw != want {
		t.Fatalf("MarshalFieldScores() = %s", raw)
	}

	out, err := UnmarshalFieldScores(raw)
	if err != nil {
		t.Fatalf("UnmarshalFieldScores() error = %v", err)
	}
	if len(out) != 2 || out[0] != in[1] || out[1] != in[0] {
		t.Fatalf("UnmarshalFieldScores() = %#v", out)
	}
}

func TestComputeChecksum_RejectsInvalidUTF8(t *testing.T) {
	mutations := map[string]func(*ChecksumPayload){
		"model":                func(p *ChecksumPayload) { p.Model = "Prod\xffucts" },
		"foreign_key":          func(p *ChecksumPayload) { p.ForeignKey = "42\xfe" },
		"source":               func(p *ChecksumPayload) { p.Source = "sys\xfftem" },
		"actor_user_id":        func(p *ChecksumPayload) { p.ActorUserID = strPtr("7\xff") },
		"actor_service":        func(p *ChecksumPayload) { p.ActorService = strPtr("svc\xff") },
		"created":              func(p *ChecksumPayload) { p.Created = "2026-01-02T03:04:05Z\xff" },
		"to_field_scores_json": func(p *ChecksumPayload) { p.ToFieldScoresJSON = strPtr("{\"title\":{\"notes\":\"a\xffb\"}}") },
		"from_field_scores_json": func(p *ChecksumPayload) {
			p.FromFieldScoresJSON = strPtr("{\"title\":{\"notes\":\"a\xfeb\"}}")
		},
	}
	for name, mutate := range mutations {
		p := basePayload()
		mutate(&p)
		if _, err := ComputeChecksum(p); !errors.Is(err, ErrChecksum) {
			t.Fatalf("%s: ComputeChecksum() error = %v, want ErrChecksum", name, err)
		}
	}
}

func TestCanonicalizeJSON_NumbersByExactValue(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"w":0.08}`, `{"w":0.08}`},
		{`{"w":1.0}`, `{"w":1}`},
		{`{"w":0.00001}`, `{"w":0.00001}`},
		{`{"w":1e-05}`, `{"w":0.00001}`},
		{`{"w":0.08000000000000000001}`, `{"w":0.08000000000000000001}`},
		{`[12345678901234567891]`, `[12345678901234567891]`},
	}
	for _, tc := range cases {
		got, err := CanonicalizeJSON(tc.in)
		if err != nil {
			t.Fatalf("CanonicalizeJSON(%s) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("CanonicalizeJSON(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}

	a := basePayload()
	b := basePayload()
	a.ToFieldScoresJSON = strPtr(`{"title":{"weight":0.08}}`)
	b.ToFieldScoresJSON = strPtr(`{"title":{"weight":0.08000000000000000001}}`)
	sumA, _ := ComputeChecksum(a)
	sumB, _ := ComputeChecksum(b)
	if sumA == sumB {
		t.Fatalf("distinct number literals hashed alike")
	}
}

func TestCanonicalizeJSON_TrailingDataIsUnparsable(t *testing.T) {
	got, err := CanonicalizeJSON(`{"a":1} {"b":2}`)
	if err != nil || got != "null" {
		t.Fatalf("CanonicalizeJSON() = %s, %v, want null", got, err)
	}
}
