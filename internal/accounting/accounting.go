// Package accounting implements the monthly revenue and refund aggregation
// pipeline over the upstream order source.
package accounting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/comptoir/woocompta/internal/dependency"
	"github.com/comptoir/woocompta/internal/dto"
	"github.com/comptoir/woocompta/internal/entity"
	"github.com/comptoir/woocompta/internal/fanout"
	"github.com/comptoir/woocompta/internal/woo"
	"github.com/shopspring/decimal"
)

// Config is the configuration for the aggregation service.
type Config struct {
	// AmountMode selects the payment amount definition: "gross" (raw order
	// total) or "net_of_fees" (total + shipping - |discount|).
	AmountMode string `mapstructure:"amount_mode"`
	// RefundsConcurrency caps concurrent refund lookups when the request
	// does not specify its own value.
	RefundsConcurrency int `mapstructure:"refunds_concurrency"`
	// DashboardStatuses are the statuses the HTML dashboard reports on.
	DashboardStatuses []string `mapstructure:"dashboard_statuses"`
}

// Mode returns the configured amount mode, defaulting to the documented
// gross-total definition.
func (c *Config) Mode() dto.AmountMode {
	if c.AmountMode == string(dto.AmountNetOfFees) {
		return dto.AmountNetOfFees
	}
	return dto.AmountGrossTotal
}

// Service aggregates upstream orders and refunds into monthly buckets.
type Service struct {
	source      dependency.OrderSource
	mode        dto.AmountMode
	concurrency int
}

// New creates the aggregation service over an order source.
func New(c *Config, source dependency.OrderSource) *Service {
	concurrency := c.RefundsConcurrency
	if concurrency == 0 {
		concurrency = 4
	}
	return &Service{
		source:      source,
		mode:        c.Mode(),
		concurrency: fanout.Clamp(concurrency),
	}
}

// Query selects the aggregation window and inputs.
type Query struct {
	Year               int
	Month              int // 0 means the whole year
	Statuses           []entity.OrderStatus
	Preview            int // 0 means no cap on orders per status
	RefundsConcurrency int // 0 means the configured default
}

func (q Query) validate() error {
	if q.Year < 2000 || q.Year > 2100 {
		return fmt.Errorf("year: must be between 2000 and 2100, got %d", q.Year)
	}
	if q.Month < 0 || q.Month > 12 {
		return fmt.Errorf("month: must be between 0 and 12, got %d", q.Month)
	}
	if len(q.Statuses) == 0 {
		return errors.New("statuses: at least one order status is required")
	}
	return nil
}

// window resolves the half-open UTC query window [after, before).
func (q Query) window() (time.Time, time.Time) {
	if q.Month != 0 {
		after := time.Date(q.Year, time.Month(q.Month), 1, 0, 0, 0, 0, time.UTC)
		return after, after.AddDate(0, 1, 0)
	}
	after := time.Date(q.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return after, after.AddDate(1, 0, 0)
}

// Window is the resolved query window.
type Window struct {
	After  time.Time `json:"after"`
	Before time.Time `json:"before"`
}

// Report is the result of one aggregation run.
type Report struct {
	Window   Window               `json:"window"`
	Statuses []entity.OrderStatus `json:"statuses"`
	Months   []entity.MonthBucket `json:"months"`
}

type bucket struct {
	orders   int
	gross    decimal.Decimal
	refunds  int
	refunded decimal.Decimal
}

// Aggregate fetches every order matching the query per status, buckets
// payments and refunds by calendar month, and returns one bucket per month
// of the window, in chronological order, zero-filled where no order fell.
//
// Each status is processed independently: overlapping statuses upstream
// would double-count, which is accepted behavior. Refunds are scoped to the
// orders already selected for gross sales, so gross, refunds and net stay
// consistent per bucket. Totals are rounded to 2 decimals once, at the end.
func (s *Service) Aggregate(ctx context.Context, q Query) (*Report, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	after, before := q.window()

	buckets := make(map[entity.YearMonth]*bucket)
	var keys []entity.YearMonth
	for ym, end := entity.TimeYearMonth(after), entity.TimeYearMonth(before); ym.Before(end); ym = ym.Next() {
		keys = append(keys, ym)
		buckets[ym] = &bucket{gross: decimal.Zero, refunded: decimal.Zero}
	}

	for _, status := range q.Statuses {
		orders, err := s.source.ListAllOrders(ctx, status, after, before, q.Preview)
		if err != nil {
			return nil, fmt.Errorf("listing %s orders: %w", status, err)
		}

		for _, o := range orders {
			ym, ok := entity.YearMonthOf(o.DateCreated)
			if !ok {
				continue
			}
			b, ok := buckets[ym]
			if !ok {
				// upstream returned an order outside the window
				continue
			}
			b.orders++
			b.gross = b.gross.Add(dto.PaymentAmount(o, s.mode))
		}

		refundLists, err := s.fetchRefunds(ctx, orders, q.RefundsConcurrency)
		if err != nil {
			return nil, err
		}
		for i, refunds := range refundLists {
			o := orders[i]
			for _, r := range refunds {
				ts := r.DateCreated
				if ts == "" {
					ts = o.DateCreated
				}
				ym, ok := entity.YearMonthOf(ts)
				b := buckets[ym]
				if !ok || b == nil {
					// refund dated outside the window reduces the order's month
					if orderYM, ok := entity.YearMonthOf(o.DateCreated); ok {
						b = buckets[orderYM]
					}
				}
				if b == nil {
					continue
				}
				b.refunds++
				b.refunded = b.refunded.Add(dto.RefundAmount(r).Abs())
			}
		}
	}

	months := make([]entity.MonthBucket, 0, len(keys))
	for _, ym := range keys {
		b := buckets[ym]
		gross := b.gross.Round(2)
		refunded := b.refunded.Round(2)
		months = append(months, entity.MonthBucket{
			Month:        ym.Key(),
			OrdersCount:  b.orders,
			GrossSales:   gross,
			RefundsCount: b.refunds,
			RefundsTotal: refunded,
			NetRevenue:   gross.Sub(refunded).Round(2),
		})
	}

	return &Report{
		Window:   Window{After: after, Before: before},
		Statuses: q.Statuses,
		Months:   months,
	}, nil
}

// RowsQuery selects the flat-row listing inputs.
type RowsQuery struct {
	Year               int
	Month              int // 0 means the whole year
	Statuses           []entity.OrderStatus
	Limit              int
	IncludeRefunds     bool
	RefundsConcurrency int
}

// FlatRows fetches the same order set as Aggregate and flattens it into
// transaction rows sorted by date.
func (s *Service) FlatRows(ctx context.Context, q RowsQuery) ([]entity.FlatRow, error) {
	aq := Query{Year: q.Year, Month: q.Month, Statuses: q.Statuses}
	if err := aq.validate(); err != nil {
		return nil, err
	}
	after, before := aq.window()

	opts := dto.RowOptions{Mode: s.mode, IncludeRefunds: q.IncludeRefunds}
	rows := []entity.FlatRow{}
	for _, status := range q.Statuses {
		orders, err := s.source.ListAllOrders(ctx, status, after, before, q.Limit)
		if err != nil {
			return nil, fmt.Errorf("listing %s orders: %w", status, err)
		}

		var refundLists [][]entity.Refund
		if q.IncludeRefunds {
			refundLists, err = s.fetchRefunds(ctx, orders, q.RefundsConcurrency)
			if err != nil {
				return nil, err
			}
		}
		for i, o := range orders {
			var refunds []entity.Refund
			if refundLists != nil {
				refunds = refundLists[i]
			}
			rows = append(rows, dto.FlattenOrder(o, refunds, opts)...)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows, nil
}

// fetchRefunds looks up refunds for every order with a bounded number of
// lookups in flight, index-aligned with orders. Orders whose embedded refund
// summary is present and empty are skipped without a lookup. A failed lookup
// is logged and counted as no refunds so one bad order cannot fail the whole
// report; missing upstream credentials abort the run.
func (s *Service) fetchRefunds(ctx context.Context, orders []entity.Order, concurrency int) ([][]entity.Refund, error) {
	if concurrency == 0 {
		concurrency = s.concurrency
	}
	return fanout.Map(ctx, orders, concurrency, func(ctx context.Context, o entity.Order) ([]entity.Refund, error) {
		if o.Refunds != nil && len(o.Refunds) == 0 {
			return nil, nil
		}
		refunds, err := s.source.ListRefunds(ctx, o.ID)
		if err != nil {
			if errors.Is(err, woo.ErrNotConfigured) {
				return nil, err
			}
			slog.Default().Error("refund lookup failed, counting none",
				"order_id", o.ID, "error", err.Error())
			return nil, nil
		}
		return refunds, nil
	})
}
