package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/analytics"
	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

const (
	handlerTimeout = 7 * time.Second

	msgBadRequest     = "Formato de solicitud inválido"
	msgNotFound       = "Recurso no encontrado"
	msgUnauthorized   = "Sesión expirada o no autorizada"
	msgUnsupported    = "Operación no permitida para este recurso"
	msgLedgerDown     = "Error en la petición"
	msgInvalidWindow  = "El período debe ser 3, 6 o 12 meses"
	msgInvalidKind    = "Tipo de registro inválido"
	msgInvalidFilter  = "Filtro inválido"
	msgMissingCreds   = "Usuario y contraseña son requeridos"
	msgRequestTimeout = "La petición tardó demasiado"
)

// validationMessages translates record validation failures.
var validationMessages = []struct {
	err error
	msg string
}{
	{core.ErrZeroDate, "La fecha es obligatoria"},
	{core.ErrInvalidAmount, "El valor debe ser mayor a 0"},
	{core.ErrEmptyDetail, "El detalle es obligatorio"},
	{core.ErrDetailTooLong, "El detalle no puede superar 200 caracteres"},
	{core.ErrNegativeBalance, "El saldo actual no puede ser negativo"},
	{core.ErrBalanceExceedsTotal, "El saldo actual no puede superar el monto total"},
	{core.ErrInvalidLoanType, "Tipo de préstamo inválido"},
	{core.ErrInvalidLoanTerms, "Los préstamos por porcentaje requieren capital, interés y plazo"},
	{core.ErrMissingDebt, "El abono debe referenciar una deuda"},
	{core.ErrInvalidPaymentType, "Tipo de abono inválido"},
	{core.ErrInvalidPercent, "El porcentaje debe ser mayor a 0 y máximo 100"},
	{core.ErrNotComputable, "El valor del abono no se puede calcular"},
}

// errorStatus maps a service error to a status code and a message for the
// user.
func errorStatus(err error) (int, string) {
	for _, v := range validationMessages {
		if errors.Is(err, v.err) {
			return http.StatusUnprocessableEntity, v.msg
		}
	}

	var apiErr *ledger.APIError
	switch {
	case errors.Is(err, analytics.ErrInvalidWindow):
		return http.StatusBadRequest, msgInvalidWindow
	case errors.Is(err, errInvalidKind):
		return http.StatusBadRequest, msgInvalidKind
	case errors.Is(err, errInvalidFilter):
		return http.StatusBadRequest, msgInvalidFilter
	case errors.Is(err, ledger.ErrInvalidPayload), errors.Is(err, errBadBody):
		return http.StatusBadRequest, msgBadRequest
	case errors.Is(err, ledger.ErrUnknownResource):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, ledger.ErrUnsupported):
		return http.StatusMethodNotAllowed, msgUnsupported
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, msgRequestTimeout
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		msg := apiErr.Message
		if msg == "" {
			msg = msgLedgerDown
		}
		return status, msg
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	}
	return http.StatusBadGateway, msgLedgerDown
}

// writeJSON sends v with status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	NewHTMXResponse().Status(status).BodyJSON(v).Write(w)
}

// writeError logs err and answers with its mapped status and message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"url", r.URL.Path,
			"status", status,
			"error", err)
	} else {
		slog.WarnContext(r.Context(), "Request rejected",
			"method", r.Method,
			"url", r.URL.Path,
			"status", status,
			"error", err)
	}
	JSONError(status, msg).Write(w)
}

// formatCOP formats an amount as Colombian pesos without decimals, e.g.
// "$ 1.234.567".
func formatCOP(d decimal.Decimal) string {
	neg := d.IsNegative()
	digits := d.Abs().Round(0).StringFixed(0)

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-$ " + b.String()
	}
	return "$ " + b.String()
}

// formatFloatCOP formats a float amount like formatCOP.
func formatFloatCOP(f float64) string {
	return formatCOP(decimal.NewFromFloat(f))
}

// formatPercent prints a percentage with one decimal and a comma separator.
func formatPercent(f float64) string {
	return strings.Replace(fmt.Sprintf("%.1f%%", f), ".", ",", 1)
}

var kindLabels = map[core.Kind]string{
	core.KindIncome:          "Ingreso",
	core.KindPurchase:        "Compra",
	core.KindFixedExpense:    "Gasto fijo",
	core.KindVariableExpense: "Gasto variable",
	core.KindDebt:            "Deuda",
	core.KindPayment:         "Abono",
}

func kindLabel(k core.Kind) string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}
