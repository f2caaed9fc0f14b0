package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"finanzas/internal/analytics"
	"finanzas/internal/ledger"
	"finanzas/internal/services"
)

const (
	defaultSnapshotLimit = 30
	maxSnapshotLimit     = 500
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	summary, err := s.dashboard.Summary(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	window, err := ParseWindow(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	report, err := s.dashboard.Statistics(ctx, window)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleIncomeAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	out, err := s.dashboard.IncomeAnalytics(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSearch answers the global search. An empty query is not an error;
// it just finds nothing.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, err := ParseSearchQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	results, err := s.dashboard.Search(ctx, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   q.Term,
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleDebtProgress(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	progress, err := s.dashboard.DebtProgress(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// handleAmortization previews the French schedule of a percentage loan.
func (s *Server) handleAmortization(w http.ResponseWriter, r *http.Request) {
	var req services.AmortizationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.dashboard.Amortization(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cuota_mensual":   out.Installment,
		"interes_total":   out.TotalInterest,
		"monto_total":     out.Total,
		"capital_inicial": req.Principal,
		"plazo_meses":     req.TermMonths,
	})
}

// handleSnapshots lists stored reports. Without a window every window is
// listed.
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	var window analytics.Window
	if r.URL.Query().Get("window") != "" {
		var err error
		if window, err = ParseWindow(r.URL.Query()); err != nil {
			writeError(w, r, err)
			return
		}
	}
	limit := ParseLimit(r.URL.Query(), defaultSnapshotLimit, maxSnapshotLimit)
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	snaps, err := s.dashboard.Snapshots(ctx, window, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

// handleList returns one collection. Incomes accept the q, from, to, min
// and max filters.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	resource, err := ledger.ParseResource(mux.Vars(r)["resource"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	if resource == ledger.Incomes {
		filter, err := ParseIncomeFilter(r.URL.Query(), s.dashboard.Location())
		if err != nil {
			writeError(w, r, err)
			return
		}
		incomes, err := s.dashboard.Incomes(ctx, filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, incomes)
		return
	}

	records, err := s.dashboard.Records(ctx, resource)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
