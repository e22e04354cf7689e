// Package http provides HTTP server and handler implementations.
//
// This file implements parsing of entry request bodies. Amounts arrive as a
// JSON string or number and are converted without going through float64.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"receitas/internal/core"
)

// maxBodyBytes bounds entry request bodies.
const maxBodyBytes = 64 << 10

// EntryPayload is the request body of POST and PUT.
type EntryPayload struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	Date        string          `json:"date"`
}

// entryJSON is the response shape; amounts are always rendered as strings.
type entryJSON struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
}

func toJSON(e core.Entry) entryJSON {
	return entryJSON{
		ID:          e.ID,
		Description: e.Description,
		Amount:      core.FormatAmount(e.Amount),
		Date:        e.Date.String(),
	}
}

func toJSONList(entries []core.Entry) []entryJSON {
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, toJSON(e))
	}
	return out
}

// FieldError marks a body field that was present but could not be converted.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// DecodeEntry reads an entry from the request body. Syntax problems yield a
// plain InvalidInput error; unconvertible fields yield a *FieldError.
func DecodeEntry(w http.ResponseWriter, r *http.Request) (core.Entry, error) {
	if r.Body == nil {
		return core.Entry{}, core.Invalid("decode entry", "request body is required")
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.Entry{}, core.Invalid("decode entry", fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return core.Entry{}, core.Invalid("decode entry", "could not read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return core.Entry{}, core.Invalid("decode entry", "request body is required")
	}

	var p EntryPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return core.Entry{}, core.Invalid("decode entry", "malformed JSON body: "+err.Error())
	}

	return p.Entry()
}

// Entry converts the payload. A missing date is left zero so that entry
// validation reports it.
func (p EntryPayload) Entry() (core.Entry, error) {
	amount, err := parseAmountField(p.Amount)
	if err != nil {
		return core.Entry{}, &FieldError{Field: "amount", Err: err}
	}

	var date core.Date
	if s := strings.TrimSpace(p.Date); s != "" {
		date, err = core.ParseDate(s)
		if err != nil {
			return core.Entry{}, &FieldError{Field: "date", Err: err}
		}
	}

	e := core.NewEntry(sanitizeInput(p.Description), amount, date)
	e.ID = p.ID
	return e, nil
}

// parseAmountField accepts "1000.00", "1000,00" or 1000.00.
func parseAmountField(raw json.RawMessage) (amount decimal.Decimal, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return amount, core.ErrInvalidAmount
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return amount, core.ErrInvalidAmount
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return amount, core.ErrInvalidAmount
		}
		s = n.String()
	}
	return core.ParseAmount(s)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
