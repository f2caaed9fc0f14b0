package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"finanzas/internal/core"
)

// DefaultBaseURL is where a locally running Ledger Service listens.
const DefaultBaseURL = "http://localhost:4000/api"

// maxResponseBytes caps how much of a ledger response is read.
var maxResponseBytes int64 = 32 << 20

// Config configures the ledger client.
type Config struct {
	// BaseURL is the API root, e.g. http://localhost:4000/api.
	BaseURL string

	// Token is an optional bearer token to start with.
	Token string

	// Credentials, when set, are used to log in again once the session
	// token has expired.
	Credentials *Credentials

	// HTTPClient is an optional custom HTTP client (for testing).
	HTTPClient *http.Client

	// Timeout is the request timeout used when HTTPClient is nil.
	Timeout time.Duration
}

// Client is the HTTP implementation of Ledger. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string

	now func() time.Time

	mu      sync.RWMutex
	session Session
	cred    *Credentials

	// renewing serializes re-logins.
	renewing sync.Mutex
}

var _ Ledger = (*Client)(nil)

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	c := &Client{httpClient: httpClient, baseURL: baseURL, now: time.Now, cred: cfg.Credentials}
	c.SetToken(cfg.Token)
	return c
}

// SetToken replaces the bearer token sent with every request. An empty
// token clears it.
func (c *Client) SetToken(token string) {
	s, _ := NewSession(token, nil)
	c.setSession(s)
}

func (c *Client) setSession(s Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Client) Token() string {
	return c.Session().Token
}

// Session returns the session whose token the client currently sends.
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// ensureSession logs in again with the configured credentials when the
// current token has expired. Without credentials it does nothing and the
// ledger decides.
func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.RLock()
	cred, expired := c.cred, c.session.Expired(c.now())
	c.mu.RUnlock()
	if cred == nil || !expired {
		return nil
	}

	c.renewing.Lock()
	defer c.renewing.Unlock()
	if !c.Session().Expired(c.now()) {
		return nil
	}
	s, err := c.Login(ctx, *cred)
	if err != nil {
		return fmt.Errorf("renew ledger session: %w", err)
	}
	slog.InfoContext(ctx, "Renewed ledger session", "subject", s.Subject, "expires_at", s.ExpiresAt)
	return nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Incomes(ctx context.Context) ([]core.Income, error) {
	return list[core.Income](ctx, c, Incomes)
}

func (c *Client) FixedExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	return list[core.FixedExpense](ctx, c, FixedExpenses)
}

func (c *Client) VariableExpenses(ctx context.Context) ([]core.VariableExpense, error) {
	return list[core.VariableExpense](ctx, c, VariableExpenses)
}

func (c *Client) Purchases(ctx context.Context) ([]core.Purchase, error) {
	return list[core.Purchase](ctx, c, Purchases)
}

func (c *Client) Debts(ctx context.Context) ([]core.Debt, error) {
	return list[core.Debt](ctx, c, Debts)
}

func (c *Client) Payments(ctx context.Context) ([]core.Payment, error) {
	return list[core.Payment](ctx, c, Payments)
}

func (c *Client) Debt(ctx context.Context, id string) (core.Debt, error) {
	d, err := do[core.Debt](ctx, c, http.MethodGet, string(Debts)+"/"+id, nil)
	if err != nil {
		return core.Debt{}, err
	}
	if d == nil {
		return core.Debt{}, ErrNotFound
	}
	return *d, nil
}

// Cash returns the raw cash document served at /caja. Its shape belongs to
// the ledger; totals are always derived from the income list instead.
func (c *Client) Cash(ctx context.Context) (json.RawMessage, error) {
	raw, err := do[json.RawMessage](ctx, c, http.MethodGet, "caja", nil)
	if err != nil || raw == nil {
		return nil, err
	}
	return *raw, nil
}

func (c *Client) Create(ctx context.Context, r Resource, rec core.Record) (core.Record, error) {
	if r.Kind() == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, r)
	}
	raw, err := do[json.RawMessage](ctx, c, http.MethodPost, string(r), rec)
	if err != nil {
		return nil, err
	}
	return echo(r, raw, rec)
}

func (c *Client) Update(ctx context.Context, r Resource, id string, rec core.Record) (core.Record, error) {
	if !r.Updatable() {
		return nil, fmt.Errorf("%w: update %s", ErrUnsupported, r)
	}
	if r.Kind() == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, r)
	}
	raw, err := do[json.RawMessage](ctx, c, http.MethodPut, string(r)+"/"+id, rec)
	if err != nil {
		return nil, err
	}
	return echo(r, raw, rec)
}

func (c *Client) Delete(ctx context.Context, r Resource, id string) error {
	if r.Kind() == "" {
		return fmt.Errorf("%w: %q", ErrUnknownResource, r)
	}
	_, err := do[json.RawMessage](ctx, c, http.MethodDelete, string(r)+"/"+id, nil)
	return err
}

// Login exchanges credentials for a token, which the client keeps for
// subsequent calls.
func (c *Client) Login(ctx context.Context, cred Credentials) (Session, error) {
	resp, err := do[struct {
		Token string          `json:"token"`
		User  json.RawMessage `json:"user"`
	}](ctx, c, http.MethodPost, "auth/login", cred)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Message == DefaultMessage {
			apiErr.Message = "Error en el login"
		}
		return Session{}, err
	}
	if resp == nil || resp.Token == "" {
		return Session{}, &APIError{Status: http.StatusBadGateway, Message: "Error en el login"}
	}
	s, err := NewSession(resp.Token, resp.User)
	if err != nil {
		return Session{}, err
	}
	c.setSession(s)
	return s, nil
}

// Register creates an account. The ledger keeps it pending until an
// administrator approves it, so no token is returned; only its message.
func (c *Client) Register(ctx context.Context, cred Credentials) (string, error) {
	resp, err := do[struct {
		Message string `json:"message"`
	}](ctx, c, http.MethodPost, "auth/register", cred)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	return resp.Message, nil
}

// Profile returns the authenticated user document.
func (c *Client) Profile(ctx context.Context) (json.RawMessage, error) {
	raw, err := do[json.RawMessage](ctx, c, http.MethodGet, "auth/profile", nil)
	if err != nil || raw == nil {
		return nil, err
	}
	return *raw, nil
}

// Ping reports whether the ledger answers at all. Any HTTP response,
// including an error status, counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := do[json.RawMessage](ctx, c, http.MethodGet, "caja", nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return nil
	}
	return err
}

func list[T any](ctx context.Context, c *Client, r Resource) ([]T, error) {
	items, err := do[[]T](ctx, c, http.MethodGet, string(r), nil)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r, err)
	}
	if items == nil || *items == nil {
		return []T{}, nil
	}
	return *items, nil
}

// echo decodes the record the ledger returned after a write, falling back
// to the submitted record when the body was empty.
func echo(r Resource, raw *json.RawMessage, sent core.Record) (core.Record, error) {
	if raw == nil || len(*raw) == 0 {
		return sent, nil
	}
	rec, err := decode(r, *raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s response: %w", r, err)
	}
	return rec, nil
}

// do performs one request. A nil result with a nil error means the ledger
// answered 204 or an empty body.
func do[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	if !strings.HasPrefix(path, "auth/") {
		if err := c.ensureSession(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(respBody)) > maxResponseBytes {
		return nil, fmt.Errorf("read response: body exceeds %d bytes", maxResponseBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseError(resp.StatusCode, respBody)
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(respBody)) == 0 {
		return nil, nil
	}

	var result T
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &result, nil
}

func parseError(status int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
	}
	msg := DefaultMessage
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		msg = payload.Message
	}
	return &APIError{Status: status, Message: msg}
}
