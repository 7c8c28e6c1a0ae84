package accounting

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comptoir/woocompta/internal/entity"
	"github.com/comptoir/woocompta/internal/woo"
)

// fakeSource is an in-memory order source.
type fakeSource struct {
	orders      map[entity.OrderStatus][]entity.Order
	refunds     map[int][]entity.Refund
	refundErr   map[int]error
	refundCalls int32
}

func (f *fakeSource) ListOrders(_ context.Context, status entity.OrderStatus, _, _ time.Time, page, perPage int) ([]entity.Order, int, error) {
	if page > 1 {
		return nil, 1, nil
	}
	return f.orders[status], 1, nil
}

func (f *fakeSource) ListAllOrders(_ context.Context, status entity.OrderStatus, _, _ time.Time, limit int) ([]entity.Order, error) {
	orders := f.orders[status]
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (f *fakeSource) ListRefunds(_ context.Context, orderID int) ([]entity.Refund, error) {
	atomic.AddInt32(&f.refundCalls, 1)
	if err := f.refundErr[orderID]; err != nil {
		return nil, err
	}
	return f.refunds[orderID], nil
}

func newService(src *fakeSource) *Service {
	return New(&Config{AmountMode: "gross", RefundsConcurrency: 4}, src)
}

func bucketByMonth(t *testing.T, months []entity.MonthBucket, key string) entity.MonthBucket {
	t.Helper()
	for _, m := range months {
		if m.Month == key {
			return m
		}
	}
	t.Fatalf("no bucket %s", key)
	return entity.MonthBucket{}
}

func TestAggregateZeroFill(t *testing.T) {
	svc := newService(&fakeSource{})

	report, err := svc.Aggregate(context.Background(), Query{
		Year:     2030,
		Statuses: []entity.OrderStatus{entity.StatusCompleted},
	})
	require.NoError(t, err)
	require.Len(t, report.Months, 12)

	assert.Equal(t, "2030-01", report.Months[0].Month)
	assert.Equal(t, "2030-12", report.Months[11].Month)
	for _, m := range report.Months {
		assert.Zero(t, m.OrdersCount)
		assert.True(t, m.GrossSales.IsZero())
		assert.Zero(t, m.RefundsCount)
		assert.True(t, m.RefundsTotal.IsZero())
		assert.True(t, m.NetRevenue.IsZero())
	}
}

func TestAggregateSingleMonthWindow(t *testing.T) {
	svc := newService(&fakeSource{})

	report, err := svc.Aggregate(context.Background(), Query{
		Year:     2025,
		Month:    3,
		Statuses: []entity.OrderStatus{entity.StatusCompleted},
	})
	require.NoError(t, err)
	require.Len(t, report.Months, 1)
	assert.Equal(t, "2025-03", report.Months[0].Month)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), report.Window.After)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), report.Window.Before)
}

func TestAggregateScenario(t *testing.T) {
	src := &fakeSource{
		orders: map[entity.OrderStatus][]entity.Order{
			entity.StatusCompleted: {{
				ID:          1,
				Number:      "1001",
				Status:      entity.StatusCompleted,
				Total:       "100.00",
				DateCreated: "2025-03-05T10:00:00",
			}},
		},
		refunds: map[int][]entity.Refund{
			1: {{ID: 9, Amount: "30.00", DateCreated: "2025-03-10T12:00:00"}},
		},
	}
	svc := newService(src)

	report, err := svc.Aggregate(context.Background(), Query{
		Year:     2025,
		Statuses: []entity.OrderStatus{entity.StatusCompleted},
	})
	require.NoError(t, err)

	m := bucketByMonth(t, report.Months, "2025-03")
	assert.Equal(t, 1, m.OrdersCount)
	assert.True(t, m.GrossSales.Equal(decimal.RequireFromString("100.00")), m.GrossSales.String())
	assert.Equal(t, 1, m.RefundsCount)
	assert.True(t, m.RefundsTotal.Equal(decimal.RequireFromString("30.00")), m.RefundsTotal.String())
	assert.True(t, m.NetRevenue.Equal(decimal.RequireFromString("70.00")), m.NetRevenue.String())
}

func TestAggregateNetIdentity(t *testing.T) {
	src := &fakeSource{
		orders: map[entity.OrderStatus][]entity.Order{
			entity.StatusCompleted: {
				{ID: 1, Number: "1", Total: "10.111", DateCreated: "2025-01-02T00:00:00"},
				{ID: 2, Number: "2", Total: "20.222", DateCreated: "2025-01-03T00:00:00"},
				{ID: 3, Number: "3", Total: "5.05", DateCreated: "2025-06-01T00:00:00"},
			},
		},
		refunds: map[int][]entity.Refund{
			1: {{ID: 4, Amount: "-3.333", DateCreated: "2025-01-20T00:00:00"}},
		},
	}
	svc := newService(src)

	report, err := svc.Aggregate(context.Background(), Query{
		Year:     2025,
		Statuses: []entity.OrderStatus{entity.StatusCompleted},
	})
	require.NoError(t, err)
	for _, m := range report.Months {
		assert.True(t, m.NetRevenue.Equal(m.GrossSales.Sub(m.RefundsTotal).Round(2)), m.Month)
	}
}

func TestAggregateIdempotence(t *testing.T) {
	src := &fakeSource{
		orders: map[entity.OrderStatus][]entity.Order{
			entity.StatusCompleted: {
				{ID: 1, Number: "1", Total: "99.99", DateCreated: "2025-02-01T00:00:00"},
			},
		},
		refunds: map[int][]entity.Refund{
			1: {{ID: 2, Amount: "10.00", DateCreated: "2025-02-05T00:00:00"}},
		},
	}
	svc := newService(src)
	q := Query{Year: 2025, Statuses: []entity.OrderStatus{entity.StatusCompleted}}

	first, err := svc.Aggregate(context.Background(), q)
	require.NoError(t, err)
	second, err := svc.Aggregate(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAggregatePreviewCapsRefundLookups(t *testing.T) {
	var orders []entity.Order
	for i := 1; i <= 20; i++ {
		orders = append(orders, entity.Order{ID: i, Total: "10.00", DateCreated: "2025-05-01T00:00:00"})
	}
	src := &fakeSource{orders: map[entity.OrderStatus][]entity.Order{entity.StatusCompleted: orders}}
	svc := newService(src)

	report, err := svc.Aggregate(context.Background(), Query{
		Year:     2025,
		Statuses: []entity.OrderStatus{entity.StatusCompleted},
		Preview:  5,
	})
	require.NoError(t, err)

	m := bucketByMonth(t, report.Months, "2025-05")
	assert.Equal(t, 5, m.OrdersCount)
	assert.Equal(t, int32(5), atomic.LoadInt32(&src.refundCalls))
}

func TestAggregateEmptyEmbeddedRefundsShortCircuit(t *testing.T) {
	src := &fakeSource{
		orders: map[entity.OrderStatus][]entity.Order{
			entity.StatusCompleted: {
				// present and empty: no lookup
				{ID: 1, Total: "10.00", DateCreated: "2025-05-01T00:00:00", Refunds: []entity.OrderRefundSummary{}},
				// absent: lookup still happens
				{ID: 2, Total: "10.00", DateCreated: "2025-05-01T00:00:00"},
			},
		},
	}
	svc := newService(src)

	_, err := svc.Aggregate(context.Background(), Query{
		Year:     2025,
		Statuses: []entity.OrderStatus{entity.StatusCompleted},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.refundCalls))
}

func TestAggregateRefundFailureIsolated(t *testing.T) {
	src := &fakeSource{
		orders: map[entity.OrderStatus][]entity.Order{
			entity.StatusCompleted: {
				{ID: 1, Total: "10.00", DateCreated: "2025-05-01T00:00:00"},
				{ID: 2, Total: "20.00", DateCreated: "2025-05-01T00:00:00"},
			},
		},
		refunds:   map[int][]entity.Refund{2: {{ID: 3, Amount: "5.00", DateCreated: "2025-05-02T00:00:00"}}},
		refundErr: map[int]error{1: errors.New("upstream timeout")},
	}
	svc := newService(src)

	report, err := svc.Aggregate(context.Background(), Query{
		Year:     2025,
		Statuses: []entity.OrderStatus{entity.StatusCompleted},
	})
	require.NoError(t, err)

	m := bucketByMonth(t, report.Months, "2025-05")
	assert.Equal(t, 2, m.OrdersCount)
	assert.Equal(t, 1, m.RefundsCount)
	assert.True(t, m.NetRevenue.Equal(decimal.RequireFromString("25.00")), m.NetRevenue.String())
}

func TestAggregateMissingCredentialsAborts(t *testing.T) {
	src := &fakeSource{
		orders: map[entity.OrderStatus][]entity.Order{
			entity.StatusCompleted: {{ID: 1, Total: "10.00", DateCreated: "2025-05-01T00:00:00"}},
		},
		refundErr: map[int]error{1: woo.ErrNotConfigured},
	}
	svc := newService(src)

	_, err := svc.Aggregate(context.Background(), Query{
		Year:     2025,
		Statuses: []entity.OrderStatus{entity.StatusCompleted},
	})
	assert.ErrorIs(t, err, woo.ErrNotConfigured)
}

func TestAggregateValidation(t *testing.T) {
	svc := newService(&fakeSource{})

	_, err := svc.Aggregate(context.Background(), Query{Year: 2025})
	assert.ErrorContains(t, err, "statuses")

	_, err = svc.Aggregate(context.Background(), Query{Year: 123, Statuses: []entity.OrderStatus{entity.StatusCompleted}})
	assert.ErrorContains(t, err, "year")

	_, err = svc.Aggregate(context.Background(), Query{Year: 2025, Month: 13, Statuses: []entity.OrderStatus{entity.StatusCompleted}})
	assert.ErrorContains(t, err, "month")
}

func TestRowBucketConsistency(t *testing.T) {
	src := &fakeSource{
		orders: map[entity.OrderStatus][]entity.Order{
			entity.StatusCompleted: {
				{ID: 1, Number: "1", Total: "100.00", DateCreated: "2025-03-05T10:00:00"},
				{ID: 2, Number: "2", Total: "40.00", DateCreated: "2025-03-20T10:00:00"},
				{ID: 3, Number: "3", Total: "60.00", DateCreated: "2025-07-01T10:00:00"},
			},
		},
		refunds: map[int][]entity.Refund{
			1: {{ID: 9, Amount: "30.00", DateCreated: "2025-03-10T12:00:00"}},
		},
	}
	svc := newService(src)
	statuses := []entity.OrderStatus{entity.StatusCompleted}

	report, err := svc.Aggregate(context.Background(), Query{Year: 2025, Statuses: statuses})
	require.NoError(t, err)

	rows, err := svc.FlatRows(context.Background(), RowsQuery{Year: 2025, Statuses: statuses, IncludeRefunds: true})
	require.NoError(t, err)

	sums := map[string]decimal.Decimal{}
	for _, r := range rows {
		key := r.Date[:7]
		sums[key] = sums[key].Add(r.Amount)
	}
	for _, m := range report.Months {
		assert.True(t, m.NetRevenue.Equal(sums[m.Month].Round(2)), m.Month)
	}
}

func TestFlatRowsSortedByDate(t *testing.T) {
	src := &fakeSource{
		orders: map[entity.OrderStatus][]entity.Order{
			entity.StatusCompleted: {
				{ID: 1, Number: "1", Total: "10.00", DateCreated: "2025-06-05T10:00:00"},
				{ID: 2, Number: "2", Total: "10.00", DateCreated: "2025-01-05T10:00:00"},
			},
		},
	}
	svc := newService(src)

	rows, err := svc.FlatRows(context.Background(), RowsQuery{
		Year:     2025,
		Statuses: []entity.OrderStatus{entity.StatusCompleted},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[0].Reference)
	assert.Equal(t, "1", rows[1].Reference)
}
