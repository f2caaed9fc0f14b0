package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/analytics"
	"finanzas/internal/core"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"id": "123", "name": "test", "amount": 42.5}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if id := parser.Get("id"); id != "123" {
		t.Errorf("Get('id') = %q, want '123'", id)
	}
	if amount := parser.Get("amount"); amount != "42.5" {
		t.Errorf("Get('amount') = %q, want '42.5'", amount)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "id=456&name=form+test&value=100"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if name := parser.Get("name"); name != "form test" {
		t.Errorf("Get('name') = %q, want 'form test'", name)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"valor":`))

	if _, err := NewRequestBodyParser(req).RecordJSON(); err == nil {
		t.Error("expected an error for a truncated JSON body")
	}
}

func TestRequestBodyParser_RecordJSONFromForm(t *testing.T) {
	body := "fecha=2024-03-01&valor=1500%2C5&detalle=123&destino=&plazo_meses=12"
	req := httptest.NewRequest(http.MethodPost, "/api/compras", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	raw, err := NewRequestBodyParser(req).RecordJSON()
	if err != nil {
		t.Fatalf("RecordJSON() error = %v", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if doc["valor"] != 1500.5 {
		t.Errorf("valor = %v, want number 1500.5", doc["valor"])
	}
	if doc["plazo_meses"] != float64(12) {
		t.Errorf("plazo_meses = %v, want 12", doc["plazo_meses"])
	}
	if doc["detalle"] != "123" {
		t.Errorf("detalle = %v, want the string 123", doc["detalle"])
	}
	if _, ok := doc["destino"]; ok {
		t.Error("empty fields should be dropped")
	}
}

func TestRequestBodyParser_Credentials(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"json", `{"username":" ana ","password":"secreto"}`},
		{"form", "username=ana&password=secreto"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tt.body))
			c, err := NewRequestBodyParser(req).Credentials()
			if err != nil {
				t.Fatalf("Credentials() error = %v", err)
			}
			if c.Username != "ana" || c.Password != "secreto" {
				t.Errorf("got %+v", c)
			}
		})
	}
}

func TestParseKinds(t *testing.T) {
	kinds, err := ParseKinds("ingreso, compras,,deuda")
	if err != nil {
		t.Fatalf("ParseKinds() error = %v", err)
	}
	want := []core.Kind{core.KindIncome, core.KindPurchase, core.KindDebt}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}

	if kinds, err := ParseKinds(""); err != nil || len(kinds) != 0 {
		t.Errorf("empty list: %v, %v", kinds, err)
	}
	if _, err := ParseKinds("ingreso,bitcoin"); !errors.Is(err, errInvalidKind) {
		t.Errorf("error = %v, want errInvalidKind", err)
	}
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		query   string
		want    analytics.Window
		wantErr bool
	}{
		{"", analytics.DefaultWindow, false},
		{"window=3", analytics.Window3, false},
		{"window=12", analytics.Window12, false},
		{"window=7", 0, true},
		{"window=abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParseWindow(q)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("window = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseIncomeFilter(t *testing.T) {
	q, _ := url.ParseQuery("q=sueldo&from=2024-01-01&to=2024-01-31&min=100&max=2000,5")
	f, err := ParseIncomeFilter(q, time.UTC)
	if err != nil {
		t.Fatalf("ParseIncomeFilter() error = %v", err)
	}
	if f.Text != "sueldo" {
		t.Errorf("text = %q", f.Text)
	}
	if !f.From.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v", f.From)
	}
	if f.To.Before(time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC)) || !f.To.Before(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("to = %v, want the end of 2024-01-31", f.To)
	}
	if !f.MinAmount.Valid || !f.MinAmount.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Errorf("min = %v", f.MinAmount)
	}
	if !f.MaxAmount.Valid || !f.MaxAmount.Decimal.Equal(decimal.RequireFromString("2000.5")) {
		t.Errorf("max = %v", f.MaxAmount)
	}

	for _, bad := range []string{"from=ayer", "min=mucho", "from=2024-02-01&to=2024-01-01"} {
		q, _ := url.ParseQuery(bad)
		if _, err := ParseIncomeFilter(q, time.UTC); !errors.Is(err, errInvalidFilter) {
			t.Errorf("%s: error = %v, want errInvalidFilter", bad, err)
		}
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 30},
		{"limit=5", 5},
		{"limit=0", 30},
		{"limit=-3", 30},
		{"limit=x", 30},
		{"limit=10000", 500},
	}
	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		if got := ParseLimit(q, 30, 500); got != tt.want {
			t.Errorf("ParseLimit(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
