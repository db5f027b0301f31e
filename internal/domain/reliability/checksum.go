package reliability

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strconv"
	"unicode/utf8"
)

var checksumPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// ChecksumPayload is every audit log column covered by the checksum.
type ChecksumPayload struct {
	Model               string
	ForeignKey          string
	FromTotalScore      *float64
	ToTotalScore        float64
	FromFieldScoresJSON *string
	ToFieldScoresJSON   *string
	Source              string
	ActorUserID         *string
	ActorService        *string
	Created             string
}

// checksumRecord fixes the serialized key order; do not reorder fields.
type checksumRecord struct {
	Model               string   `json:"model"`
	ForeignKey          string   `json:"foreign_key"`
	FromTotalScore      *float64 `json:"from_total_score"`
	ToTotalScore        float64  `json:"to_total_score"`
	FromFieldScoresJSON string   `json:"from_field_scores_json"`
	ToFieldScoresJSON   string   `json:"to_field_scores_json"`
	Source              string   `json:"source"`
	ActorUserID         *string  `json:"actor_user_id"`
	ActorService        *string  `json:"actor_service"`
	Created             string   `json:"created"`
}

// ComputeChecksum returns the lowercase hex SHA-256 of the canonical payload.
// Text that is not valid UTF-8 cannot be encoded without loss and is rejected.
func ComputeChecksum(p ChecksumPayload) (string, error) {
	if err := checkPayloadText(p); err != nil {
		return "", fmt.Errorf("%w: %v", ErrChecksum, err)
	}
	fromJSON, err := CanonicalizeJSON(p.FromFieldScoresJSON)
	if err != nil {
		return "", fmt.Errorf("%w: from_field_scores_json: %v", ErrChecksum, err)
	}
	toJSON, err := CanonicalizeJSON(p.ToFieldScoresJSON)
	if err != nil {
		return "", fmt.Errorf("%w: to_field_scores_json: %v", ErrChecksum, err)
	}

	raw, err := encodeJSON(checksumRecord{
		Model:               p.Model,
		ForeignKey:          p.ForeignKey,
		FromTotalScore:      p.FromTotalScore,
		ToTotalScore:        p.ToTotalScore,
		FromFieldScoresJSON: fromJSON,
		ToFieldScoresJSON:   toJSON,
		Source:              p.Source,
		ActorUserID:         p.ActorUserID,
		ActorService:        p.ActorService,
		Created:             p.Created,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChecksum, err)
	}

	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

var errInvalidUTF8 = errors.New("invalid UTF-8")

func checkPayloadText(p ChecksumPayload) error {
	fields := []struct {
		column string
		value  *string
	}{
		{"model", &p.Model},
		{"foreign_key", &p.ForeignKey},
		{"source", &p.Source},
		{"actor_user_id", p.ActorUserID},
		{"actor_service", p.ActorService},
		{"created", &p.Created},
	}
	for _, f := range fields {
		if f.value != nil && !utf8.ValidString(*f.value) {
			return fmt.Errorf("%s: %w", f.column, errInvalidUTF8)
		}
	}
	return nil
}

// ValidChecksumFormat reports whether s is 64 lowercase hex chars.
func ValidChecksumFormat(s string) bool {
	return checksumPattern.MatchString(s)
}

// ChecksumsEqual compares two digests in constant time.
func ChecksumsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// CanonicalizeJSON re-serializes a JSON document with sorted object keys and
// without HTML escaping. Numbers are compared by exact value: a literal equal
// to a float64's shortest form is written that way, any other literal is kept
// as given. Nil, empty or unparsable input yields "null"; input that is not
// valid UTF-8 is an error.
//
// Accepted inputs: nil, string, *string, []byte, json.RawMessage, or any
// value encoding/json can marshal.
func CanonicalizeJSON(v any) (string, error) {
	var raw []byte
	switch t := v.(type) {
	case nil:
		return "null", nil
	case *string:
		if t == nil {
			return "null", nil
		}
		raw = []byte(*t)
	case string:
		raw = []byte(t)
	case []byte:
		raw = t
	case json.RawMessage:
		raw = t
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		raw = encoded
	}

	if !utf8.Valid(raw) {
		return "", errInvalidUTF8
	}

	decoded, ok := decodeJSON(raw)
	if !ok || decoded == nil {
		return "null", nil
	}

	// encoding/json writes map keys in sorted order at every depth.
	out, err := encodeJSON(canonicalNumbers(decoded))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// decodeJSON parses exactly one JSON value, keeping numbers as json.Number.
func decodeJSON(raw []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return decoded, true
}

func canonicalNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = canonicalNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = canonicalNumbers(item)
		}
		return t
	case json.Number:
		return canonicalNumber(t)
	default:
		return v
	}
}

func canonicalNumber(n json.Number) any {
	literal := n.String()
	f, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return n
	}
	exact, ok := new(big.Rat).SetString(literal)
	if !ok {
		return n
	}
	shortest, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'g', -1, 64))
	if !ok || exact.Cmp(shortest) != 0 {
		return n
	}
	return f
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
