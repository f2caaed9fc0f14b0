// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// bodies sent either as JSON or as HTMX form posts, and the query parameters
// shared by the API handlers.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/analytics"
	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

const maxBodyBytes = 1 << 20

var (
	errInvalidKind   = errors.New("invalid record kind")
	errInvalidFilter = errors.New("invalid income filter")
	errBadBody       = errors.New("malformed request body")
)

// numericFields are the record fields a form post sends as text but the
// ledger expects as numbers.
var numericFields = map[string]bool{
	"valor":               true,
	"monto_total":         true,
	"saldo_actual":        true,
	"porcentaje_interes":  true,
	"plazo_meses":         true,
	"capital_inicial":     true,
	"porcentaje_aplicado": true,
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' || p.body[0] == '[' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// RecordJSON returns the body as a JSON record document. JSON bodies pass
// through untouched; form posts are converted field by field.
func (p *RequestBodyParser) RecordJSON() ([]byte, error) {
	if err := p.Parse(); err != nil {
		return nil, err
	}
	if p.IsJSON() {
		return p.body, nil
	}
	doc := make(map[string]interface{}, len(p.formData))
	for key := range p.formData {
		value := sanitizeInput(p.formData.Get(key))
		if value == "" {
			continue
		}
		if numericFields[key] {
			if d, err := decimal.NewFromString(strings.Replace(value, ",", ".", 1)); err == nil {
				doc[key] = json.Number(d.String())
				continue
			}
		}
		doc[key] = value
	}
	return json.Marshal(doc)
}

// Credentials reads a login or register body.
func (p *RequestBodyParser) Credentials() (ledger.Credentials, error) {
	if err := p.Parse(); err != nil {
		return ledger.Credentials{}, err
	}
	return ledger.Credentials{
		Username: p.Get("username"),
		Password: p.Get("password"),
	}, nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
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

// ParseWindow reads the window query parameter; absent means the default.
func ParseWindow(query url.Values) (analytics.Window, error) {
	return analytics.ParseWindow(strings.TrimSpace(query.Get("window")))
}

// ParseKinds reads a comma separated list of record kinds. Collection names
// such as "compras" are accepted too.
func ParseKinds(s string) ([]core.Kind, error) {
	var kinds []core.Kind
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, ok := core.ParseKind(part)
		if !ok {
			return nil, errInvalidKind
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// ParseSearchQuery builds a search from q and types.
func ParseSearchQuery(query url.Values) (analytics.Query, error) {
	kinds, err := ParseKinds(query.Get("types"))
	if err != nil {
		return analytics.Query{}, err
	}
	return analytics.Query{Term: sanitizeInput(query.Get("q")), Kinds: kinds}, nil
}

// ParseIncomeFilter reads q, from, to, min and max. Dates are YYYY-MM-DD in
// loc and the upper date is inclusive.
func ParseIncomeFilter(query url.Values, loc *time.Location) (analytics.IncomeFilter, error) {
	if loc == nil {
		loc = time.Local
	}
	f := analytics.IncomeFilter{Text: sanitizeInput(query.Get("q"))}

	if v := strings.TrimSpace(query.Get("from")); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, loc)
		if err != nil {
			return f, errInvalidFilter
		}
		f.From = t
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, loc)
		if err != nil {
			return f, errInvalidFilter
		}
		f.To = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	for key, dst := range map[string]*decimal.NullDecimal{"min": &f.MinAmount, "max": &f.MaxAmount} {
		v := strings.TrimSpace(query.Get(key))
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(strings.Replace(v, ",", ".", 1))
		if err != nil {
			return f, errInvalidFilter
		}
		*dst = decimal.NewNullDecimal(d)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, errInvalidFilter
	}
	return f, nil
}

// ParseLimit reads a positive limit capped at max, def when absent.
func ParseLimit(query url.Values, def, max int) int {
	v := strings.TrimSpace(query.Get("limit"))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
