// Package dto converts upstream order payloads into the flat transaction
// rows served by the reports API.
package dto

import (
	"fmt"

	"github.com/comptoir/woocompta/internal/entity"
	"github.com/shopspring/decimal"
)

// AmountMode selects how the payment-row amount is derived from an order.
// Both variants exist in production deployments, so the mode is explicit
// configuration, never an implicit default.
type AmountMode string

const (
	// AmountGrossTotal uses the raw order total.
	AmountGrossTotal AmountMode = "gross"
	// AmountNetOfFees adds the shipping total and subtracts the absolute
	// discount total.
	AmountNetOfFees AmountMode = "net_of_fees"
)

// Localized natures of a flat row.
const (
	NaturePayment = "Paiement"
	NatureRefund  = "Remboursement"
)

// RowOptions controls flattening.
type RowOptions struct {
	Mode           AmountMode
	IncludeRefunds bool
}

// PaymentAmount returns the signed payment-row amount for an order under the
// given mode. Unparsable decimal strings count as zero.
func PaymentAmount(o entity.Order, mode AmountMode) decimal.Decimal {
	total := parseAmount(o.Total)
	if mode != AmountNetOfFees {
		return total
	}
	return total.Add(parseAmount(o.ShippingTotal)).Sub(parseAmount(o.DiscountTotal).Abs())
}

// RefundAmount normalizes the upstream refund amount, whose sign is
// ambiguous, to a non-positive value.
func RefundAmount(r entity.Refund) decimal.Decimal {
	return parseAmount(r.Amount).Abs().Neg()
}

// FlattenOrder returns exactly one payment row for the order and, when
// refund inclusion is enabled, one refund row per refund. Refund rows carry
// the refund's own date, falling back to the order's when absent.
func FlattenOrder(o entity.Order, refunds []entity.Refund, opts RowOptions) []entity.FlatRow {
	rows := make([]entity.FlatRow, 0, 1+len(refunds))
	rows = append(rows, entity.FlatRow{
		Date:          entity.NormalizeTimestamp(o.DateCreated),
		Reference:     o.Number,
		LastName:      o.Billing.LastName,
		FirstName:     o.Billing.FirstName,
		Nature:        NaturePayment,
		PaymentMethod: o.PaymentMethodTitle,
		Amount:        PaymentAmount(o, opts.Mode),
		Currency:      o.Currency,
		Status:        o.Status.Label(),
		City:          o.Billing.City,
	})
	if !opts.IncludeRefunds {
		return rows
	}
	for _, r := range refunds {
		date := r.DateCreated
		if date == "" {
			date = o.DateCreated
		}
		rows = append(rows, entity.FlatRow{
			Date:          entity.NormalizeTimestamp(date),
			Reference:     fmt.Sprintf("%s-R%d", o.Number, r.ID),
			LastName:      o.Billing.LastName,
			FirstName:     o.Billing.FirstName,
			Nature:        NatureRefund,
			PaymentMethod: o.PaymentMethodTitle,
			Amount:        RefundAmount(r),
			Currency:      o.Currency,
			Status:        o.Status.Label(),
			City:          o.Billing.City,
		})
	}
	return rows
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
