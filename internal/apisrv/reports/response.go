package reports

import (
	"encoding/json"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/comptoir/woocompta/internal/accounting"
	"github.com/comptoir/woocompta/internal/entity"
)

type accountingResponse struct {
	OK       bool                 `json:"ok"`
	Window   accounting.Window    `json:"window"`
	Statuses []entity.OrderStatus `json:"statuses"`
	Months   []entity.MonthBucket `json:"months"`
}

type rowsResponse struct {
	OK    bool             `json:"ok"`
	Count int              `json:"count"`
	Rows  []entity.FlatRow `json:"rows"`
}

type errResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondErr(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, errResponse{OK: false, Error: err.Error()})
}

// dashboardView is the template payload of one rendered dashboard.
type dashboardView struct {
	Year     int
	Statuses []entity.OrderStatus
	Months   []dashboardMonth
	Totals   dashboardMonth
}

type dashboardMonth struct {
	Month        string
	OrdersCount  int
	GrossSales   string
	RefundsCount int
	RefundsTotal string
	NetRevenue   string
}

// dashboardData formats bucket amounts with the French locale for display.
func dashboardData(year int, statuses []entity.OrderStatus, report *accounting.Report) dashboardView {
	p := message.NewPrinter(language.French)
	fmtAmount := func(d interface{ InexactFloat64() float64 }) string {
		return p.Sprintf("%.2f", d.InexactFloat64())
	}

	view := dashboardView{Year: year, Statuses: statuses}
	var totals entity.MonthBucket
	for _, m := range report.Months {
		view.Months = append(view.Months, dashboardMonth{
			Month:        m.Month,
			OrdersCount:  m.OrdersCount,
			GrossSales:   fmtAmount(m.GrossSales),
			RefundsCount: m.RefundsCount,
			RefundsTotal: fmtAmount(m.RefundsTotal),
			NetRevenue:   fmtAmount(m.NetRevenue),
		})
		totals.OrdersCount += m.OrdersCount
		totals.GrossSales = totals.GrossSales.Add(m.GrossSales)
		totals.RefundsCount += m.RefundsCount
		totals.RefundsTotal = totals.RefundsTotal.Add(m.RefundsTotal)
		totals.NetRevenue = totals.NetRevenue.Add(m.NetRevenue)
	}
	view.Totals = dashboardMonth{
		Month:        "Total",
		OrdersCount:  totals.OrdersCount,
		GrossSales:   fmtAmount(totals.GrossSales),
		RefundsCount: totals.RefundsCount,
		RefundsTotal: fmtAmount(totals.RefundsTotal),
		NetRevenue:   fmtAmount(totals.NetRevenue),
	}
	return view
}
