// Package lock serializes writers on the same stock or purchase order key
// across goroutines (Local) or processes (Redis).
package lock

import (
	"context"
	"sort"

	"github.com/example/stock-ledger/internal/domain/apperr"
)

// ErrBusy is returned when a lock could not be taken within the retry budget.
var ErrBusy = apperr.Conflict("resource is busy, please try again")

// Unlock releases a held lock.
type Unlock func()

type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// VariantKey names the lock guarding every stock record and alert of a
// variant. Alert evaluation reads all locations of the variant, so writers
// on different locations of one variant are serialized too.
func VariantKey(variantID string) string {
	return "lock:stock:" + variantID
}

// PurchaseOrderKey names the lock guarding a purchase order and its items.
func PurchaseOrderKey(purchaseOrderID string) string {
	return "lock:po:" + purchaseOrderID
}

// LockAll takes every key in sorted order so that two callers locking the
// same keys cannot deadlock. Duplicate keys are locked once.
func LockAll(ctx context.Context, l Locker, keys ...string) (Unlock, error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	held := make([]Unlock, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}

	for i, key := range sorted {
		if i > 0 && sorted[i-1] == key {
			continue
		}
		unlock, err := l.Lock(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		held = append(held, unlock)
	}
	return release, nil
}
