// Package memory is an in-process ledger, used for demos, offline work and
// tests. It keeps the same rules as the Ledger Service for what it stores.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finanzas/internal/analytics"
	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

type Store struct {
	mu        sync.Mutex
	incomes   []core.Income
	fixed     []core.FixedExpense
	variable  []core.VariableExpense
	purchases []core.Purchase
	debts     []core.Debt
	payments  []core.Payment

	username string
	password string
}

var _ ledger.Ledger = (*Store)(nil)

// New seeds a store with a copy of the given collections.
func New(seed analytics.Collections) *Store {
	return &Store{
		incomes:   append([]core.Income(nil), seed.Incomes...),
		fixed:     append([]core.FixedExpense(nil), seed.Fixed...),
		variable:  append([]core.VariableExpense(nil), seed.Variable...),
		purchases: append([]core.Purchase(nil), seed.Purchases...),
		debts:     append([]core.Debt(nil), seed.Debts...),
		payments:  append([]core.Payment(nil), seed.Payments...),
	}
}

// NewFromFile loads a JSON dump shaped like analytics.Collections. An empty
// path yields an empty ledger.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(analytics.Collections{}), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var seed analytics.Collections
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return New(seed), nil
}

// WithCredentials restricts Login to one username and password. Without it
// any non-empty pair is accepted.
func (s *Store) WithCredentials(username, password string) *Store {
	s.username, s.password = username, password
	return s
}

func (s *Store) Incomes(_ context.Context) ([]core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.incomes), nil
}

func (s *Store) FixedExpenses(_ context.Context) ([]core.FixedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.fixed), nil
}

func (s *Store) VariableExpenses(_ context.Context) ([]core.VariableExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.variable), nil
}

func (s *Store) Purchases(_ context.Context) ([]core.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.purchases), nil
}

func (s *Store) Debts(_ context.Context) ([]core.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.debts), nil
}

func (s *Store) Payments(_ context.Context) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.payments), nil
}

func (s *Store) Debt(_ context.Context, id string) (core.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.debts, id); i >= 0 {
		return s.debts[i], nil
	}
	return core.Debt{}, ledger.ErrNotFound
}

// Create stores rec under a fresh id. Payments reduce the balance of the
// debt they reference.
func (s *Store) Create(_ context.Context, r ledger.Resource, rec core.Record) (core.Record, error) {
	if err := checkKind(r, rec); err != nil {
		return nil, err
	}
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	switch v := rec.(type) {
	case core.Income:
		v.ID = id
		if err := v.Validate(); err != nil {
			return nil, err
		}
		s.incomes = append(s.incomes, v)
		return v, nil
	case core.FixedExpense:
		v.ID = id
		if err := v.Validate(); err != nil {
			return nil, err
		}
		s.fixed = append(s.fixed, v)
		return v, nil
	case core.VariableExpense:
		v.ID = id
		if err := v.Validate(); err != nil {
			return nil, err
		}
		s.variable = append(s.variable, v)
		return v, nil
	case core.Purchase:
		v.ID = id
		if err := v.Validate(); err != nil {
			return nil, err
		}
		s.purchases = append(s.purchases, v)
		return v, nil
	case core.Debt:
		v.ID = id
		if err := v.Validate(); err != nil {
			return nil, err
		}
		s.debts = append(s.debts, v)
		return v, nil
	case core.Payment:
		v.ID = id
		if err := v.Validate(); err != nil {
			return nil, err
		}
		if err := s.applyPayment(string(v.DebtID), v.Amount.Neg()); err != nil {
			return nil, err
		}
		s.payments = append(s.payments, v)
		return v, nil
	}
	return nil, fmt.Errorf("%w: %T", ledger.ErrUnknownResource, rec)
}

func (s *Store) Update(_ context.Context, r ledger.Resource, id string, rec core.Record) (core.Record, error) {
	if !r.Updatable() {
		return nil, fmt.Errorf("%w: update %s", ledger.ErrUnsupported, r)
	}
	if err := checkKind(r, rec); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch v := rec.(type) {
	case core.FixedExpense:
		v.ID = id
		return v, replace(s.fixed, v)
	case core.VariableExpense:
		v.ID = id
		return v, replace(s.variable, v)
	case core.Purchase:
		v.ID = id
		return v, replace(s.purchases, v)
	case core.Debt:
		v.ID = id
		return v, replace(s.debts, v)
	case core.Payment:
		v.ID = id
		if err := v.Validate(); err != nil {
			return nil, err
		}
		i := indexOf(s.payments, id)
		if i < 0 {
			return nil, ledger.ErrNotFound
		}
		old := s.payments[i]
		if err := s.applyPayment(string(old.DebtID), old.Amount); err != nil {
			return nil, err
		}
		if err := s.applyPayment(string(v.DebtID), v.Amount.Neg()); err != nil {
			// put the old payment back
			_ = s.applyPayment(string(old.DebtID), old.Amount.Neg())
			return nil, err
		}
		s.payments[i] = v
		return v, nil
	}
	return nil, fmt.Errorf("%w: %T", ledger.ErrUnknownResource, rec)
}

// Delete removes a record. Deleting a payment gives its amount back to the
// debt, never beyond the debt total.
func (s *Store) Delete(_ context.Context, r ledger.Resource, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	switch r {
	case ledger.Incomes:
		s.incomes, _, ok = remove(s.incomes, id)
	case ledger.FixedExpenses:
		s.fixed, _, ok = remove(s.fixed, id)
	case ledger.VariableExpenses:
		s.variable, _, ok = remove(s.variable, id)
	case ledger.Purchases:
		s.purchases, _, ok = remove(s.purchases, id)
	case ledger.Debts:
		s.debts, _, ok = remove(s.debts, id)
	case ledger.Payments:
		var p core.Payment
		s.payments, p, ok = remove(s.payments, id)
		if ok {
			_ = s.applyPayment(string(p.DebtID), p.Amount)
		}
	default:
		return fmt.Errorf("%w: %q", ledger.ErrUnknownResource, r)
	}
	if !ok {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) Login(_ context.Context, c ledger.Credentials) (ledger.Session, error) {
	if c.Username == "" || c.Password == "" ||
		(s.username != "" && (c.Username != s.username || c.Password != s.password)) {
		return ledger.Session{}, &ledger.APIError{Status: 401, Message: "Credenciales inválidas"}
	}
	return ledger.Session{Token: "memory:" + c.Username, Subject: c.Username}, nil
}

func (s *Store) Register(_ context.Context, c ledger.Credentials) (string, error) {
	if c.Username == "" || c.Password == "" {
		return "", &ledger.APIError{Status: 400, Message: "Usuario y contraseña son requeridos"}
	}
	return "Usuario registrado. Pendiente de aprobación.", nil
}

func (s *Store) Ping(_ context.Context) error { return nil }

// applyPayment moves a debt balance by delta, keeping it within [0, total].
// Callers hold s.mu.
func (s *Store) applyPayment(debtID string, delta decimal.Decimal) error {
	i := indexOf(s.debts, debtID)
	if i < 0 {
		return fmt.Errorf("debt %s: %w", debtID, ledger.ErrNotFound)
	}
	d := &s.debts[i]
	d.CurrentBalance = decimal.Max(decimal.Zero, decimal.Min(d.TotalAmount, d.CurrentBalance.Add(delta)))
	return nil
}

func checkKind(r ledger.Resource, rec core.Record) error {
	if rec == nil || r.Kind() != rec.Kind() {
		return fmt.Errorf("%w: %q", ledger.ErrUnknownResource, r)
	}
	return nil
}

type validated interface {
	core.Record
	Validate() error
}

func replace[T validated](items []T, v T) error {
	if err := v.Validate(); err != nil {
		return err
	}
	i := indexOf(items, v.RecordID())
	if i < 0 {
		return ledger.ErrNotFound
	}
	items[i] = v
	return nil
}

func remove[T core.Record](items []T, id string) ([]T, T, bool) {
	var zero T
	i := indexOf(items, id)
	if i < 0 {
		return items, zero, false
	}
	v := items[i]
	return append(items[:i], items[i+1:]...), v, true
}

func indexOf[T core.Record](items []T, id string) int {
	for i, v := range items {
		if v.RecordID() == id {
			return i
		}
	}
	return -1
}

func clone[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
