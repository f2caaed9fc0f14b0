// Package ledger talks to the Ledger Service, the remote REST API that owns
// every income, expense, debt and payment record.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"finanzas/internal/core"
)

// Resource is the path of a collection below the API base URL.
type Resource string

const (
	Incomes          Resource = "caja/ingresos"
	FixedExpenses    Resource = "gastos-fijos"
	VariableExpenses Resource = "gastos-variables"
	Purchases        Resource = "compras"
	Debts            Resource = "deudas"
	Payments         Resource = "abonos"
)

// DefaultMessage is used when a failed response carries no message.
const DefaultMessage = "Error en la petición"

var (
	ErrUnauthorized    = errors.New("ledger: unauthorized")
	ErrNotFound        = errors.New("ledger: record not found")
	ErrUnsupported     = errors.New("ledger: operation not supported for resource")
	ErrUnknownResource = errors.New("ledger: unknown resource")
	// ErrInvalidPayload wraps a request body that is not a record.
	ErrInvalidPayload = errors.New("ledger: invalid record payload")
)

// Resources lists every collection in load order.
func Resources() []Resource {
	return []Resource{Incomes, FixedExpenses, VariableExpenses, Purchases, Debts, Payments}
}

// ParseResource accepts a collection path or one of the kind names.
func ParseResource(s string) (Resource, error) {
	s = strings.Trim(strings.ToLower(strings.TrimSpace(s)), "/")
	if s == "ingresos" || s == string(Incomes) {
		return Incomes, nil
	}
	for _, r := range Resources() {
		if s == string(r) {
			return r, nil
		}
	}
	if k, ok := core.ParseKind(s); ok {
		return ForKind(k), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownResource, s)
}

// ForKind maps a record kind to its collection.
func ForKind(k core.Kind) Resource {
	switch k {
	case core.KindIncome:
		return Incomes
	case core.KindFixedExpense:
		return FixedExpenses
	case core.KindVariableExpense:
		return VariableExpenses
	case core.KindPurchase:
		return Purchases
	case core.KindDebt:
		return Debts
	case core.KindPayment:
		return Payments
	}
	return ""
}

// Kind is the record kind stored in the collection.
func (r Resource) Kind() core.Kind {
	switch r {
	case Incomes:
		return core.KindIncome
	case FixedExpenses:
		return core.KindFixedExpense
	case VariableExpenses:
		return core.KindVariableExpense
	case Purchases:
		return core.KindPurchase
	case Debts:
		return core.KindDebt
	case Payments:
		return core.KindPayment
	}
	return ""
}

// Updatable reports whether records of r can be edited in place. Incomes can
// only be created and deleted.
func (r Resource) Updatable() bool { return r != Incomes }

// Ports used by the loader, the HTTP layer and the worker.
type (
	Reader interface {
		Incomes(ctx context.Context) ([]core.Income, error)
		FixedExpenses(ctx context.Context) ([]core.FixedExpense, error)
		VariableExpenses(ctx context.Context) ([]core.VariableExpense, error)
		Purchases(ctx context.Context) ([]core.Purchase, error)
		Debts(ctx context.Context) ([]core.Debt, error)
		Payments(ctx context.Context) ([]core.Payment, error)
		Debt(ctx context.Context, id string) (core.Debt, error)
	}

	Writer interface {
		Create(ctx context.Context, r Resource, rec core.Record) (core.Record, error)
		Update(ctx context.Context, r Resource, id string, rec core.Record) (core.Record, error)
		Delete(ctx context.Context, r Resource, id string) error
	}

	Authenticator interface {
		Login(ctx context.Context, c Credentials) (Session, error)
		Register(ctx context.Context, c Credentials) (string, error)
	}

	Ledger interface {
		Reader
		Writer
		Authenticator
		// Ping reports whether the ledger can be reached.
		Ping(ctx context.Context) error
	}
)

// Credentials are the username and password sent to the auth endpoints.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// APIError is a non-2xx answer from the ledger.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ledger: %d %s", e.Status, e.Message)
}

// Is lets callers test for ErrUnauthorized and ErrNotFound with errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}
