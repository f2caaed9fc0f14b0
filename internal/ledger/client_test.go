package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/api/", HTTPClient: srv.Client()})
}

func TestClient_ListSendsTokenAndDecodes(t *testing.T) {
	var gotAuth, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"_id":"i1","fecha":"2024-01-15T00:00:00.000Z","valor":5000000,"origen":"Salario"},
			{"_id":"i2","fecha":"2024-01-20","valor":null}]`)
	})
	c.SetToken("abc")

	got, err := c.Incomes(context.Background())
	if err != nil {
		t.Fatalf("Incomes() error = %v", err)
	}
	if gotAuth != "Bearer abc" {
		t.Errorf("Authorization = %q, want Bearer abc", gotAuth)
	}
	if gotPath != "/api/caja/ingresos" {
		t.Errorf("path = %q", gotPath)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].Amount.Equal(decimal.NewFromInt(5000000)) || got[0].Source != "Salario" {
		t.Errorf("first income = %+v", got[0])
	}
	if !got[1].Amount.IsZero() {
		t.Errorf("null amount should decode to zero, got %s", got[1].Amount)
	}
	if got[0].Date.Month() != time.January || got[0].Date.Day() != 15 {
		t.Errorf("date = %v", got[0].Date)
	}
}

func TestClient_EmptyListIsNotNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `null`)
	})
	got, err := c.Debts(context.Background())
	if err != nil {
		t.Fatalf("Debts() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %#v, want empty slice", got)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantMessage  string
		unauthorized bool
		notFound     bool
	}{
		{"message from body", http.StatusBadRequest, `{"message":"Monto inválido"}`, "Monto inválido", false, false},
		{"generic message", http.StatusInternalServerError, ``, DefaultMessage, false, false},
		{"non json body", http.StatusBadGateway, `<html>oops</html>`, DefaultMessage, false, false},
		{"unauthorized", http.StatusUnauthorized, `{"message":"Token inválido"}`, "Token inválido", true, false},
		{"not found", http.StatusNotFound, `{}`, DefaultMessage, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.Purchases(context.Background())
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.Status != tt.status || apiErr.Message != tt.wantMessage {
				t.Errorf("got %d %q, want %d %q", apiErr.Status, apiErr.Message, tt.status, tt.wantMessage)
			}
			if errors.Is(err, ErrUnauthorized) != tt.unauthorized {
				t.Errorf("errors.Is(ErrUnauthorized) = %v", !tt.unauthorized)
			}
			if errors.Is(err, ErrNotFound) != tt.notFound {
				t.Errorf("errors.Is(ErrNotFound) = %v", !tt.notFound)
			}
		})
	}
}

func TestClient_DeleteNoContent(t *testing.T) {
	var method, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	if err := c.Delete(context.Background(), Purchases, "p1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if method != http.MethodDelete || path != "/api/compras/p1" {
		t.Errorf("got %s %s", method, path)
	}
}

func TestClient_CreateEchoesServerRecord(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["detalle"] != "Mercado" {
			t.Errorf("detalle = %v", body["detalle"])
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"_id":"new","fecha":"2024-02-01","valor":"1500","detalle":"Mercado"}`)
	})
	rec := core.Purchase{Expense: core.Expense{Date: core.NewDate(2024, 2, 1), Amount: decimal.NewFromInt(1500), Detail: "Mercado"}}
	got, err := c.Create(context.Background(), Purchases, rec)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	p, ok := got.(core.Purchase)
	if !ok || p.ID != "new" {
		t.Errorf("got %#v", got)
	}
}

func TestClient_UpdateIncomeUnsupported(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})
	_, err := c.Update(context.Background(), Incomes, "i1", core.Income{})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
}

func TestClient_LoginStoresToken(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	var profileAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var cred Credentials
			_ = json.NewDecoder(r.Body).Decode(&cred)
			if cred.Username != "ana" || cred.Password != "pw" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"token": token, "user": map[string]string{"username": "ana"}})
		case "/api/auth/profile":
			profileAuth = r.Header.Get("Authorization")
			_, _ = io.WriteString(w, `{"username":"ana"}`)
		}
	})

	s, err := c.Login(context.Background(), Credentials{Username: "ana", Password: "pw"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if s.Subject != "user-1" || !s.ExpiresAt.Equal(exp) {
		t.Errorf("session = %+v", s)
	}
	if s.Expired(exp.Add(-time.Hour)) || !s.Expired(exp) {
		t.Error("Expired() boundaries wrong")
	}
	if _, err := c.Profile(context.Background()); err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if profileAuth != "Bearer "+token {
		t.Errorf("profile Authorization = %q", profileAuth)
	}

	_, err = c.Login(context.Background(), Credentials{Username: "ana", Password: "bad"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Error en el login" {
		t.Errorf("bad login error = %v", err)
	}
}

func TestClient_PingTreatsHTTPErrorsAsReachable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v, want nil", err)
	}

	down := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	if err := down.Ping(context.Background()); err == nil {
		t.Error("Ping() on closed port should fail")
	}
}

func TestParseResource(t *testing.T) {
	tests := map[string]Resource{
		"caja/ingresos":    Incomes,
		"ingresos":         Incomes,
		"/gastos-fijos/":   FixedExpenses,
		"gastos-variables": VariableExpenses,
		"compra":           Purchases,
		"deudas":           Debts,
		"abonos":           Payments,
		"PAYMENT":          Payments,
	}
	for in, want := range tests {
		got, err := ParseResource(in)
		if err != nil || got != want {
			t.Errorf("ParseResource(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseResource("usuarios"); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("ParseResource(usuarios) error = %v", err)
	}
}

func signedToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestClient_RenewsExpiredSession(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	expired := signedToken(t, "svc", now.Add(-time.Minute))
	valid := signedToken(t, "svc", now.Add(time.Hour))
	renewed := signedToken(t, "svc", now.Add(2*time.Hour))

	tests := []struct {
		name       string
		token      string
		cred       *Credentials
		loginFails bool
		wantLogins int
		wantAuth   string
		wantErr    bool
	}{
		{name: "expired with credentials", token: expired, cred: &Credentials{Username: "svc", Password: "pw"}, wantLogins: 1, wantAuth: "Bearer " + renewed},
		{name: "valid with credentials", token: valid, cred: &Credentials{Username: "svc", Password: "pw"}, wantAuth: "Bearer " + valid},
		{name: "expired without credentials", token: expired, wantAuth: "Bearer " + expired},
		{name: "renewal rejected", token: expired, cred: &Credentials{Username: "svc", Password: "pw"}, loginFails: true, wantLogins: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logins int
			var gotAuth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/api/auth/login":
					logins++
					if tt.loginFails {
						w.WriteHeader(http.StatusUnauthorized)
						return
					}
					_ = json.NewEncoder(w).Encode(map[string]any{"token": renewed})
				case "/api/caja/ingresos":
					gotAuth = r.Header.Get("Authorization")
					_, _ = io.WriteString(w, `[]`)
				}
			}))
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL + "/api", HTTPClient: srv.Client(), Token: tt.token, Credentials: tt.cred})
			c.now = func() time.Time { return now }

			_, err := c.Incomes(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Incomes() error = %v, wantErr %v", err, tt.wantErr)
			}
			if logins != tt.wantLogins {
				t.Errorf("logins = %d, want %d", logins, tt.wantLogins)
			}
			if !tt.wantErr && gotAuth != tt.wantAuth {
				t.Errorf("Authorization = %q, want %q", gotAuth, tt.wantAuth)
			}
			if tt.wantErr {
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
					t.Errorf("error = %v, want 401 APIError", err)
				}
			}
		})
	}
}

func TestClient_RejectsOversizedResponse(t *testing.T) {
	old := maxResponseBytes
	maxResponseBytes = 64
	t.Cleanup(func() { maxResponseBytes = old })

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{name: "within limit", status: http.StatusOK, body: `[]`},
		{name: "oversized success", status: http.StatusOK, body: `[` + strings.Repeat(`{},`, 40) + `{}]`, wantErr: true},
		{name: "oversized error", status: http.StatusInternalServerError, body: strings.Repeat("x", 200), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.Purchases(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Purchases() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), "exceeds 64 bytes") {
				t.Errorf("error = %v, want size limit error", err)
			}
		})
	}
}
