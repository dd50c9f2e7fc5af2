package reservation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/products"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// StockReservationRequest asks for qty units of one product.
type StockReservationRequest struct {
	ProductID uuid.UUID
	Name      string
	Qty       int
}

// ReserveStock decrements stock for every request on tx. Requests for the same
// product are summed first so one guarded update covers them. The first
// product that cannot cover its quantity aborts the whole batch; the caller's
// transaction must roll back to discard earlier decrements.
func ReserveStock(ctx context.Context, tx *gorm.DB, requests []StockReservationRequest) error {
	if len(requests) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no items to reserve")
	}

	totals := make(map[uuid.UUID]int, len(requests))
	order := make([]StockReservationRequest, 0, len(requests))
	for _, req := range requests {
		if req.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive")
		}
		if _, seen := totals[req.ProductID]; !seen {
			order = append(order, req)
		}
		totals[req.ProductID] += req.Qty
	}

	repo := products.NewRepository(tx)
	for _, req := range order {
		if err := repo.ReserveStock(ctx, req.ProductID, req.Name, totals[req.ProductID]); err != nil {
			return err
		}
	}
	return nil
}
