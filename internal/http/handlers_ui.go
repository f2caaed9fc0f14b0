package http

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/analytics"
)

type windowOption struct {
	Value    int
	Label    string
	Selected bool
}

func windowOptions(selected analytics.Window) []windowOption {
	out := make([]windowOption, 0, 3)
	for _, w := range []analytics.Window{analytics.Window3, analytics.Window6, analytics.Window12} {
		out = append(out, windowOption{Value: int(w), Label: strconv.Itoa(int(w)) + " meses", Selected: w == selected})
	}
	return out
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "Plantillas no disponibles", http.StatusInternalServerError)
		return
	}
	data := struct {
		Windows []windowOption
		Window  int
		Today   time.Time
	}{
		Windows: windowOptions(s.defaultWindow),
		Window:  int(s.defaultWindow),
		Today:   time.Now().In(s.dashboard.Location()),
	}
	s.render(w, r, "index.html", data)
}

// handleSummaryPartial renders the dashboard home cards.
func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	summary, err := s.dashboard.Summary(ctx)
	if err != nil {
		s.renderPlaceholder(w, r, "summary", err)
		return
	}
	s.render(w, r, "summary.html", summary)
}

type trendRow struct {
	analytics.MonthlyBucket
	IncomeWidth  int
	ExpenseWidth int
}

type categoryRow struct {
	analytics.CategoryBreakdown
	Width int
}

// handleStatisticsPartial renders the statistics panel for a window.
func (s *Server) handleStatisticsPartial(w http.ResponseWriter, r *http.Request) {
	window, err := ParseWindow(r.URL.Query())
	if err != nil {
		s.renderPlaceholder(w, r, "statistics", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	report, err := s.dashboard.Statistics(ctx, window)
	if err != nil {
		s.renderPlaceholder(w, r, "statistics", err)
		return
	}

	var peak decimal.Decimal
	for _, b := range report.MonthlyTrends {
		peak = decimal.Max(peak, b.Income, b.Expense)
	}
	trends := make([]trendRow, 0, len(report.MonthlyTrends))
	for _, b := range report.MonthlyTrends {
		trends = append(trends, trendRow{
			MonthlyBucket: b,
			IncomeWidth:   barWidth(b.Income, peak),
			ExpenseWidth:  barWidth(b.Expense, peak),
		})
	}

	var top decimal.Decimal
	for _, c := range report.CategoryBreakdown {
		top = decimal.Max(top, c.Total)
	}
	categories := make([]categoryRow, 0, len(report.CategoryBreakdown))
	for _, c := range report.CategoryBreakdown {
		categories = append(categories, categoryRow{CategoryBreakdown: c, Width: barWidth(c.Total, top)})
	}

	data := struct {
		Report     analytics.Report
		Windows    []windowOption
		Trends     []trendRow
		Categories []categoryRow
	}{
		Report:     report,
		Windows:    windowOptions(window),
		Trends:     trends,
		Categories: categories,
	}
	s.render(w, r, "statistics.html", data)
}

// barWidth scales v against max as a rounded percentage. Non-zero values
// stay visible.
func barWidth(v, max decimal.Decimal) int {
	if !max.IsPositive() || !v.IsPositive() {
		return 0
	}
	width := int(v.Mul(decimal.NewFromInt(100)).Div(max).Round(0).IntPart())
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}

// render executes a template into a buffer so a failure never leaves a
// half written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "template", name)
		ErrorResponse(http.StatusInternalServerError, "Plantillas no disponibles").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		ErrorResponse(http.StatusInternalServerError, "Error al mostrar la vista").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(buf.String()).Write(w)
}

// renderPlaceholder keeps the partial's container in place with a banner,
// so htmx swaps it and later refreshes still target it.
func (s *Server) renderPlaceholder(w http.ResponseWriter, r *http.Request, section string, err error) {
	_, msg := errorStatus(err)
	slog.ErrorContext(r.Context(), "Partial failed", "section", section, "error", err)
	NewHTMXResponse().
		TriggerErrorNotification(msg).
		BodyHTML(`<section id="` + section + `" class="` + section + `"><div class="placeholder error">` +
			template.HTMLEscapeString(msg) + `</div></section>`).
		Write(w)
}
