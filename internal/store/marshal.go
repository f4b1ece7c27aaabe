package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/wisp/internal/transform"
)

// marshalResult converts a transform result, minus its code, to JSON TEXT.
// The code has its own column so it can be read without decoding.
func marshalResult(r *transform.Result) (string, error) {
	meta := *r
	meta.Code = ""

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Diagnostics quote source; keep <, > and & readable in the database.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(meta); err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalResult parses JSON TEXT written by marshalResult and restores
// the code.
func unmarshalResult(data, code string) (*transform.Result, error) {
	var r transform.Result
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	r.Code = code
	return &r, nil
}
