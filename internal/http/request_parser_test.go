package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"receitas/internal/core"
)

func TestParseAmountField(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "string with dot", raw: `"1000.00"`, want: "1000"},
		{name: "string with comma", raw: `"12,34"`, want: "12.34"},
		{name: "number", raw: `250.5`, want: "250.5"},
		{name: "integer", raw: `7`, want: "7"},
		{name: "keeps precision", raw: `"0.105"`, want: "0.105"},
		{name: "null", raw: `null`, wantErr: true},
		{name: "missing", raw: ``, wantErr: true},
		{name: "negative", raw: `-3`, wantErr: true},
		{name: "exponent", raw: `1e3`, wantErr: true},
		{name: "text", raw: `"abc"`, wantErr: true},
		{name: "bool", raw: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmountField(json.RawMessage(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidAmount) {
					t.Errorf("parseAmountField(%s) error = %v, want ErrInvalidAmount", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAmountField(%s) unexpected error: %v", tt.raw, err)
			}
			if got.String() != tt.want {
				t.Errorf("parseAmountField(%s) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDecodeEntry(t *testing.T) {
	body := `{"id":3,"description":"  Salary\u0007 ","amount":"1000.00","date":"2024-01-15"}`
	req := httptest.NewRequest(http.MethodPost, "/receitas", strings.NewReader(body))

	e, err := DecodeEntry(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("DecodeEntry() error = %v", err)
	}
	if e.ID != 3 {
		t.Errorf("ID = %d, want 3", e.ID)
	}
	if e.Description != "Salary" {
		t.Errorf("Description = %q, want %q", e.Description, "Salary")
	}
	if e.Date.String() != "2024-01-15" {
		t.Errorf("Date = %s, want 2024-01-15", e.Date)
	}
}

func TestDecodeEntryErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		fieldError bool
	}{
		{name: "empty", body: ""},
		{name: "syntax", body: `{"description"`},
		{name: "too large", body: `{"description":"` + strings.Repeat("a", maxBodyBytes) + `"}`},
		{name: "bad amount", body: `{"amount":"x","date":"2024-01-01"}`, fieldError: true},
		{name: "bad date", body: `{"amount":"1","date":"2024-13-01"}`, fieldError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/receitas", strings.NewReader(tt.body))
			_, err := DecodeEntry(httptest.NewRecorder(), req)
			if err == nil {
				t.Fatal("DecodeEntry() expected error")
			}
			if !errors.Is(err, core.ErrInvalidInput) {
				t.Errorf("error %v is not invalid input", err)
			}
			wantStatus := http.StatusBadRequest
			if tt.fieldError {
				wantStatus = http.StatusUnprocessableEntity
			}
			if got := statusFor(err); got != wantStatus {
				t.Errorf("statusFor(%v) = %d, want %d", err, got, wantStatus)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", core.NotFound("find entry", "missing"), http.StatusNotFound},
		{"exists", core.AlreadyExists("save entry", "dup"), http.StatusConflict},
		{"bad id", core.Invalid("find entry", "id is not a number"), http.StatusBadRequest},
		{"empty description", core.ErrEmptyDescription, http.StatusUnprocessableEntity},
		{"zero date", core.ErrZeroDate, http.StatusUnprocessableEntity},
		{"store failure", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput(" a\x00b\tc "); got != "ab\tc" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
