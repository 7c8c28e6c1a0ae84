package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// YearMonth is a typed calendar-month bucket key.
type YearMonth struct {
	Year  int
	Month time.Month
}

// Key renders the bucket key in "YYYY-MM" form.
func (ym YearMonth) Key() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Next returns the following calendar month.
func (ym YearMonth) Next() YearMonth {
	if ym.Month == time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// Before reports whether ym is chronologically before other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// TimeYearMonth truncates a time to its calendar month.
func TimeYearMonth(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// YearMonthOf extracts the bucket key from an upstream ISO 8601 timestamp.
func YearMonthOf(ts string) (YearMonth, bool) {
	if len(ts) < 7 {
		return YearMonth{}, false
	}
	t, err := time.Parse("2006-01", ts[:7])
	if err != nil {
		return YearMonth{}, false
	}
	return TimeYearMonth(t), true
}

// MonthBucket accumulates one calendar month of accounting figures.
type MonthBucket struct {
	Month        string          `json:"month"`
	OrdersCount  int             `json:"orders_count"`
	GrossSales   decimal.Decimal `json:"gross_sales"`
	RefundsCount int             `json:"refunds_count"`
	RefundsTotal decimal.Decimal `json:"refunds_total"`
	NetRevenue   decimal.Decimal `json:"net_revenue"`
}

// FlatRow is one normalized transaction line, payment or refund, used for
// both aggregation consistency checks and tabular export.
type FlatRow struct {
	Date          string          `json:"date"`
	Reference     string          `json:"reference"`
	LastName      string          `json:"last_name"`
	FirstName     string          `json:"first_name"`
	Nature        string          `json:"nature"`
	PaymentMethod string          `json:"payment_method"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	City          string          `json:"city"`
}
