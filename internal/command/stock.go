package command

import (
	"context"
	"errors"

	"github.com/example/stock-ledger/internal/domain/apperr"
	"github.com/example/stock-ledger/internal/domain/stock"
)

// StockChange is the outcome of a stock operation: the records as saved and
// the ledger rows appended for them, if on hand moved.
type StockChange struct {
	Stocks       []*stock.Stock       `json:"stocks"`
	Transactions []*stock.Transaction `json:"transactions,omitempty"`
}

// AddStock adds units to a pair, opening its record on first use.
func (h *Handler) AddStock(ctx context.Context, cmd AddStock) (*StockChange, error) {
	var out *StockChange
	err := h.execute(ctx, "AddStock", cmd, stockKeys(cmd.VariantID), func(ctx context.Context, u *unit) error {
		s, t, err := u.addOrOpen(ctx, cmd.VariantID, cmd.LocationID, cmd.Qty, u.entry(cmd.Reason, cmd.ReferenceID))
		if err != nil {
			return err
		}
		out = &StockChange{Stocks: []*stock.Stock{s}, Transactions: []*stock.Transaction{t}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AdjustStock applies a signed manual correction.
func (h *Handler) AdjustStock(ctx context.Context, cmd AdjustStock) (*StockChange, error) {
	var out *StockChange
	err := h.execute(ctx, "AdjustStock", cmd, stockKeys(cmd.VariantID), func(ctx context.Context, u *unit) error {
		e := u.entry(cmd.Reason, cmd.ReferenceID)
		if cmd.Delta > 0 {
			s, t, err := u.addOrOpen(ctx, cmd.VariantID, cmd.LocationID, cmd.Delta, e)
			if err != nil {
				return err
			}
			out = &StockChange{Stocks: []*stock.Stock{s}, Transactions: []*stock.Transaction{t}}
			return nil
		}

		current, err := u.findStock(ctx, cmd.VariantID, cmd.LocationID)
		if err != nil {
			return err
		}
		s, t, err := current.Adjust(cmd.Delta, e)
		if err != nil {
			return err
		}
		if err := u.saveStock(ctx, s, t); err != nil {
			return err
		}
		if err := u.record(s.Key().String(), stock.AggregateType, stock.EventStockRemoved, stock.StockRemoved{
			VariantID:  s.VariantID,
			LocationID: s.LocationID,
			Quantity:   -cmd.Delta,
			Reason:     cmd.Reason,
			OnHand:     s.Level.OnHand,
			RemovedAt:  u.now,
		}); err != nil {
			return err
		}
		out = &StockChange{Stocks: []*stock.Stock{s}, Transactions: []*stock.Transaction{t}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TransferStock moves on hand units between two locations of a variant.
// Both ledger rows are written or neither is.
func (h *Handler) TransferStock(ctx context.Context, cmd TransferStock) (*StockChange, error) {
	var out *StockChange
	err := h.execute(ctx, "TransferStock", cmd, stockKeys(cmd.VariantID), func(ctx context.Context, u *unit) error {
		from, err := u.findStock(ctx, cmd.VariantID, cmd.FromLocationID)
		if err != nil {
			return err
		}
		// 1. Take units out of the source
		to := cmd.ToLocationID
		source, outTx, err := from.RemoveStock(cmd.Qty, u.entry(stock.ReasonTransferOut, &to))
		if err != nil {
			return err
		}
		if err := u.saveStock(ctx, source, outTx); err != nil {
			return err
		}

		// 2. Put them into the destination, opening it if needed
		fromID := cmd.FromLocationID
		dest, inTx, err := u.applyAdd(ctx, cmd.VariantID, cmd.ToLocationID, cmd.Qty, u.entry(stock.ReasonTransferIn, &fromID))
		if err != nil {
			return err
		}
		if err := u.saveStock(ctx, dest, inTx); err != nil {
			return err
		}

		if err := u.record(cmd.VariantID, stock.AggregateType, stock.EventStockTransferred, stock.StockTransferred{
			VariantID:      cmd.VariantID,
			FromLocationID: cmd.FromLocationID,
			ToLocationID:   cmd.ToLocationID,
			Quantity:       cmd.Qty,
			TransferredAt:  u.now,
		}); err != nil {
			return err
		}
		out = &StockChange{
			Stocks:       []*stock.Stock{source, dest},
			Transactions: []*stock.Transaction{outTx, inTx},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReserveStock holds units without an order reservation record.
func (h *Handler) ReserveStock(ctx context.Context, cmd ReserveStock) (*StockChange, error) {
	var out *StockChange
	err := h.execute(ctx, "ReserveStock", cmd, stockKeys(cmd.VariantID), func(ctx context.Context, u *unit) error {
		s, err := u.reserve(ctx, cmd.VariantID, cmd.LocationID, cmd.Qty)
		if err != nil {
			return err
		}
		out = &StockChange{Stocks: []*stock.Stock{s}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (h *Handler) ReleaseStock(ctx context.Context, cmd ReleaseStock) (*StockChange, error) {
	var out *StockChange
	err := h.execute(ctx, "ReleaseStock", cmd, stockKeys(cmd.VariantID), func(ctx context.Context, u *unit) error {
		s, err := u.release(ctx, cmd.VariantID, cmd.LocationID, cmd.Qty)
		if err != nil {
			return err
		}
		out = &StockChange{Stocks: []*stock.Stock{s}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FulfillStock ships reserved units, lowering on hand and reserved together.
func (h *Handler) FulfillStock(ctx context.Context, cmd FulfillStock) (*StockChange, error) {
	var out *StockChange
	err := h.execute(ctx, "FulfillStock", cmd, stockKeys(cmd.VariantID), func(ctx context.Context, u *unit) error {
		s, t, err := u.fulfill(ctx, cmd.VariantID, cmd.LocationID, cmd.Qty, cmd.OrderID)
		if err != nil {
			return err
		}
		out = &StockChange{Stocks: []*stock.Stock{s}, Transactions: []*stock.Transaction{t}}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (h *Handler) SetStockThresholds(ctx context.Context, cmd SetStockThresholds) (*stock.Stock, error) {
	var out *stock.Stock
	err := h.execute(ctx, "SetStockThresholds", cmd, stockKeys(cmd.VariantID), func(ctx context.Context, u *unit) error {
		current, err := u.findStock(ctx, cmd.VariantID, cmd.LocationID)
		if err != nil {
			return err
		}
		s, err := current.SetThresholds(cmd.LowStockThreshold, cmd.SafetyStock, u.now)
		if err != nil {
			return err
		}
		if err := u.saveStock(ctx, s); err != nil {
			return err
		}
		if err := u.record(s.Key().String(), stock.AggregateType, stock.EventThresholdsUpdated, stock.ThresholdsUpdated{
			VariantID:         s.VariantID,
			LocationID:        s.LocationID,
			LowStockThreshold: s.Level.LowStockThreshold,
			SafetyStock:       s.Level.SafetyStock,
			UpdatedAt:         u.now,
		}); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// applyAdd adds qty to the pair's record, or opens it when it does not
// exist yet. Nothing is saved.
func (u *unit) applyAdd(ctx context.Context, variantID, locationID string, qty int, e stock.Entry) (*stock.Stock, *stock.Transaction, error) {
	current, err := u.findStock(ctx, variantID, locationID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return stock.Open(variantID, locationID, qty, e)
	case err != nil:
		return nil, nil, err
	}
	return current.AddStock(qty, e)
}

// addOrOpen is applyAdd followed by the save and its StockAdded event.
func (u *unit) addOrOpen(ctx context.Context, variantID, locationID string, qty int, e stock.Entry) (*stock.Stock, *stock.Transaction, error) {
	s, t, err := u.applyAdd(ctx, variantID, locationID, qty, e)
	if err != nil {
		return nil, nil, err
	}
	if err := u.saveStock(ctx, s, t); err != nil {
		return nil, nil, err
	}
	if err := u.record(s.Key().String(), stock.AggregateType, stock.EventStockAdded, stock.StockAdded{
		VariantID:   s.VariantID,
		LocationID:  s.LocationID,
		Quantity:    qty,
		Reason:      e.Reason,
		ReferenceID: e.ReferenceID,
		OnHand:      s.Level.OnHand,
		AddedAt:     u.now,
	}); err != nil {
		return nil, nil, err
	}
	return s, t, nil
}

func (u *unit) reserve(ctx context.Context, variantID, locationID string, qty int) (*stock.Stock, error) {
	current, err := u.findStock(ctx, variantID, locationID)
	if err != nil {
		return nil, err
	}
	s, err := current.ReserveStock(qty, u.now)
	if err != nil {
		return nil, err
	}
	if err := u.saveStock(ctx, s); err != nil {
		return nil, err
	}
	if err := u.record(s.Key().String(), stock.AggregateType, stock.EventStockReserved, stock.StockReserved{
		VariantID:  s.VariantID,
		LocationID: s.LocationID,
		Quantity:   qty,
		Available:  s.Available(),
		ReservedAt: u.now,
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (u *unit) release(ctx context.Context, variantID, locationID string, qty int) (*stock.Stock, error) {
	current, err := u.findStock(ctx, variantID, locationID)
	if err != nil {
		return nil, err
	}
	s, err := current.ReleaseReservation(qty, u.now)
	if err != nil {
		return nil, err
	}
	if err := u.saveStock(ctx, s); err != nil {
		return nil, err
	}
	if err := u.record(s.Key().String(), stock.AggregateType, stock.EventStockReleased, stock.StockReleased{
		VariantID:  s.VariantID,
		LocationID: s.LocationID,
		Quantity:   qty,
		Available:  s.Available(),
		ReleasedAt: u.now,
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (u *unit) fulfill(ctx context.Context, variantID, locationID string, qty int, orderID *string) (*stock.Stock, *stock.Transaction, error) {
	current, err := u.findStock(ctx, variantID, locationID)
	if err != nil {
		return nil, nil, err
	}
	s, t, err := current.FulfillReservation(qty, u.entry(stock.ReasonOrder, orderID))
	if err != nil {
		return nil, nil, err
	}
	if err := u.saveStock(ctx, s, t); err != nil {
		return nil, nil, err
	}
	if err := u.record(s.Key().String(), stock.AggregateType, stock.EventStockFulfilled, stock.StockFulfilled{
		VariantID:   s.VariantID,
		LocationID:  s.LocationID,
		Quantity:    qty,
		OrderID:     orderID,
		OnHand:      s.Level.OnHand,
		FulfilledAt: u.now,
	}); err != nil {
		return nil, nil, err
	}
	return s, t, nil
}
