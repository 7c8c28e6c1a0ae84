package dependency

import (
	"context"
	"time"

	"github.com/comptoir/woocompta/internal/entity"
)

type (
	// OrderSource is the upstream order-and-refund read API.
	OrderSource interface {
		// ListOrders returns one page of orders with the given status whose
		// creation timestamp falls in the half-open window [after, before),
		// plus the total page count reported by the upstream.
		ListOrders(ctx context.Context, status entity.OrderStatus, after, before time.Time, page, perPage int) ([]entity.Order, int, error)
		// ListAllOrders paginates through every matching page. A positive
		// limit stops pagination once limit orders have accumulated and
		// truncates the result to limit.
		ListAllOrders(ctx context.Context, status entity.OrderStatus, after, before time.Time, limit int) ([]entity.Order, error)
		// ListRefunds returns all refunds of one order, an empty slice when
		// there are none.
		ListRefunds(ctx context.Context, orderID int) ([]entity.Refund, error)
	}
)
