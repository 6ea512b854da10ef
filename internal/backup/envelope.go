// Package backup exports, imports and shares the whole bill store as a
// versioned JSON envelope.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"billtracker/internal/core"
)

// Version is stamped on every export.
const Version = "1.0"

// Envelope is the backup file layout:
//
//	{"bills": [...], "billTypes": [...], "exportDate": "...", "version": "1.0"}
type Envelope struct {
	Bills      []core.Bill `json:"bills"`
	BillTypes  []string    `json:"billTypes"`
	ExportDate time.Time   `json:"exportDate"`
	Version    string      `json:"version"`
}

// UnmarshalJSON reads exportDate and version best-effort. Both are
// informational, so an unreadable value leaves the field zero instead of
// failing the whole file.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw struct {
		Bills      []core.Bill     `json:"bills"`
		BillTypes  []string        `json:"billTypes"`
		ExportDate json.RawMessage `json:"exportDate"`
		Version    json.RawMessage `json:"version"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Envelope{Bills: raw.Bills, BillTypes: raw.BillTypes}

	var exported time.Time
	if len(raw.ExportDate) > 0 && json.Unmarshal(raw.ExportDate, &exported) == nil {
		e.ExportDate = exported
	}
	e.Version = versionText(raw.Version)
	return nil
}

// versionText accepts "1.0" as well as a bare 1.0.
func versionText(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

// ErrNotConfirmed is returned by ApplyImport when the caller has not
// confirmed the destructive replace.
var ErrNotConfirmed = errors.New("import not confirmed")

// Source is anything that can hand out a consistent copy of both lists.
type Source interface {
	Snapshot() ([]core.Bill, []string)
}

// Replacer accepts a wholesale replacement of both lists.
type Replacer interface {
	Replace(ctx context.Context, bills []core.Bill, types []string) error
}

// Export snapshots src and stamps it with now.
func Export(src Source, now time.Time) Envelope {
	bills, types := src.Snapshot()
	if bills == nil {
		bills = []core.Bill{}
	}
	if types == nil {
		types = []string{}
	}
	return Envelope{
		Bills:      bills,
		BillTypes:  types,
		ExportDate: now.UTC(),
		Version:    Version,
	}
}

// Serialize renders env as two-space indented UTF-8 JSON.
func Serialize(env Envelope) ([]byte, error) {
	return json.MarshalIndent(env, "", "  ")
}

// Deserialize decodes data. Anything that is not JSON of the envelope's
// shape is a FormatError; field presence is checked by Validate.
func Deserialize(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, &core.FormatError{Reason: "file is not a valid backup JSON document", Err: err}
	}
	return env, nil
}

// Validate requires both the bills and billTypes arrays. Empty arrays are
// fine; missing or null ones are not. Individual bills are not inspected.
func Validate(env Envelope) (Envelope, error) {
	if env.Bills == nil {
		return Envelope{}, &core.FormatError{Reason: `missing "bills" array`}
	}
	if env.BillTypes == nil {
		return Envelope{}, &core.FormatError{Reason: `missing "billTypes" array`}
	}
	return env, nil
}

// Decode runs Deserialize then Validate.
func Decode(data []byte) (Envelope, error) {
	env, err := Deserialize(data)
	if err != nil {
		return Envelope{}, err
	}
	return Validate(env)
}

// ApplyImport replaces the store's contents with env. It does nothing and
// returns ErrNotConfirmed unless confirmed is true. Amounts that arrived as
// text were already coerced while decoding; negatives are clamped here.
func ApplyImport(ctx context.Context, dst Replacer, env Envelope, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	bills := make([]core.Bill, len(env.Bills))
	for i, b := range env.Bills {
		b.Amount = b.Amount.NonNegative()
		bills[i] = b
	}
	return dst.Replace(ctx, bills, env.BillTypes)
}
