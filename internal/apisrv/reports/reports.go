// Package reports serves the accounting and flat-row endpoints plus the
// HTML dashboard.
package reports

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"github.com/comptoir/woocompta/internal/accounting"
	"github.com/comptoir/woocompta/internal/entity"
	"github.com/comptoir/woocompta/internal/export"
	"github.com/comptoir/woocompta/internal/woo"
)

//go:embed static
var fs embed.FS

// Server exposes the accounting pipeline over HTTP.
type Server struct {
	svc               *accounting.Service
	dashboardStatuses []entity.OrderStatus
	dashboardTpl      *template.Template
}

// New creates the reports server. dashboardStatuses selects which order
// statuses the HTML dashboard reports on.
func New(svc *accounting.Service, dashboardStatuses []string) *Server {
	statuses := make([]entity.OrderStatus, 0, len(dashboardStatuses))
	for _, s := range dashboardStatuses {
		statuses = append(statuses, entity.OrderStatus(s))
	}
	if len(statuses) == 0 {
		statuses = []entity.OrderStatus{entity.StatusCompleted, entity.StatusProcessing}
	}
	return &Server{
		svc:               svc,
		dashboardStatuses: statuses,
		dashboardTpl:      template.Must(template.ParseFS(fs, "static/dashboard.html")),
	}
}

// Routes returns the authenticated API routes.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/accounting", s.Accounting)
	r.Get("/orders-flat", s.OrdersFlat)
	return r
}

// accountingParams mirrors the /accounting query string.
type accountingParams struct {
	Year               int `valid:"required,range(2000|2100)"`
	Month              int `valid:"range(0|12)"`
	Preview            int `valid:"range(0|100000)"`
	RefundsConcurrency int `valid:"range(0|10)"`
}

// Accounting handles GET /accounting.
func (s *Server) Accounting(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	p := accountingParams{}
	var err error
	if p.Year, err = intParam(q.Get("year"), 0); err != nil {
		respondErr(w, http.StatusBadRequest, fmt.Errorf("year: %w", err))
		return
	}
	if p.Month, err = intParam(q.Get("month"), 0); err != nil {
		respondErr(w, http.StatusBadRequest, fmt.Errorf("month: %w", err))
		return
	}
	if p.Preview, err = intParam(q.Get("preview"), 0); err != nil {
		respondErr(w, http.StatusBadRequest, fmt.Errorf("preview: %w", err))
		return
	}
	if p.RefundsConcurrency, err = intParam(q.Get("refunds_concurrency"), 0); err != nil {
		respondErr(w, http.StatusBadRequest, fmt.Errorf("refunds_concurrency: %w", err))
		return
	}
	if _, err := govalidator.ValidateStruct(p); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	statuses, err := statusesParam(q.Get("statuses"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}

	report, err := s.svc.Aggregate(r.Context(), accounting.Query{
		Year:               p.Year,
		Month:              p.Month,
		Statuses:           statuses,
		Preview:            p.Preview,
		RefundsConcurrency: p.RefundsConcurrency,
	})
	if err != nil {
		respondErr(w, upstreamStatus(err), err)
		return
	}

	respondJSON(w, http.StatusOK, accountingResponse{
		OK:       true,
		Window:   report.Window,
		Statuses: report.Statuses,
		Months:   report.Months,
	})
}

// ordersFlatParams mirrors the /orders-flat query string.
type ordersFlatParams struct {
	Year               int `valid:"required,range(2000|2100)"`
	Month              int `valid:"range(0|12)"`
	Limit              int `valid:"range(0|100000)"`
	RefundsConcurrency int `valid:"range(0|10)"`
}

// OrdersFlat handles GET /orders-flat, returning JSON rows or a CSV
// attachment when format=csv is requested.
func (s *Server) OrdersFlat(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	p := ordersFlatParams{}
	var err error
	if p.Year, err = intParam(q.Get("year"), 0); err != nil {
		respondErr(w, http.StatusBadRequest, fmt.Errorf("year: %w", err))
		return
	}
	if p.Month, err = intParam(q.Get("month"), 0); err != nil {
		respondErr(w, http.StatusBadRequest, fmt.Errorf("month: %w", err))
		return
	}
	if p.Limit, err = intParam(q.Get("limit"), 0); err != nil {
		respondErr(w, http.StatusBadRequest, fmt.Errorf("limit: %w", err))
		return
	}
	if p.RefundsConcurrency, err = intParam(q.Get("refunds_concurrency"), 0); err != nil {
		respondErr(w, http.StatusBadRequest, fmt.Errorf("refunds_concurrency: %w", err))
		return
	}
	if _, err := govalidator.ValidateStruct(p); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	statuses, err := statusesParam(q.Get("statuses"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}
	includeRefunds := boolParam(q.Get("include_refunds"))

	rows, err := s.svc.FlatRows(r.Context(), accounting.RowsQuery{
		Year:               p.Year,
		Month:              p.Month,
		Statuses:           statuses,
		Limit:              p.Limit,
		IncludeRefunds:     includeRefunds,
		RefundsConcurrency: p.RefundsConcurrency,
	})
	if err != nil {
		respondErr(w, upstreamStatus(err), err)
		return
	}

	if q.Get("format") == "csv" {
		name := fmt.Sprintf("orders-%04d", p.Year)
		if p.Month != 0 {
			name = fmt.Sprintf("%s-%02d", name, p.Month)
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))
		if err := export.WriteCSV(w, rows); err != nil {
			slog.Default().Error("writing csv export", "error", err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, rowsResponse{OK: true, Count: len(rows), Rows: rows})
}

// Dashboard handles GET /dashboard with a server-rendered monthly report of
// the current year.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	year := time.Now().UTC().Year()
	if y, err := intParam(r.URL.Query().Get("year"), year); err == nil && y >= 2000 && y <= 2100 {
		year = y
	}

	report, err := s.svc.Aggregate(r.Context(), accounting.Query{
		Year:     year,
		Statuses: s.dashboardStatuses,
	})
	if err != nil {
		http.Error(w, err.Error(), upstreamStatus(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.dashboardTpl.Execute(w, dashboardData(year, s.dashboardStatuses, report)); err != nil {
		slog.Default().Error("rendering dashboard", "error", err.Error())
	}
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	return v, nil
}

func boolParam(raw string) bool {
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func statusesParam(raw string) ([]entity.OrderStatus, error) {
	var statuses []entity.OrderStatus
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		statuses = append(statuses, entity.OrderStatus(s))
	}
	if len(statuses) == 0 {
		return nil, errors.New("statuses: at least one order status is required")
	}
	return statuses, nil
}

// upstreamStatus maps pipeline failures to response codes: configuration
// errors are 500, upstream transport failures 502, anything else 500.
// Client input never reaches this path.
func upstreamStatus(err error) int {
	if errors.Is(err, woo.ErrNotConfigured) {
		return http.StatusInternalServerError
	}
	var apiErr *woo.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
