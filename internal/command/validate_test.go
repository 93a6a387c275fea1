package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/stock-ledger/internal/domain/apperr"
)

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var e *apperr.Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, apperr.KindValidation, e.Kind)
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func TestValidate_NestedLines(t *testing.T) {
	err := Validate(ReceivePurchaseOrderItems{
		PurchaseOrderID: newID(),
		LocationID:      newID(),
		Lines:           []ReceiveLine{{VariantID: newID(), Qty: 1}, {VariantID: newID(), Qty: 0}},
	})

	fields := fieldErrors(t, err)
	assert.Equal(t, map[string]string{"lines[1].qty": "must be greater than 0"}, fields)
}

func TestValidate_EmptyLines(t *testing.T) {
	err := Validate(ReceivePurchaseOrderItems{PurchaseOrderID: newID(), LocationID: newID()})

	fields := fieldErrors(t, err)
	assert.Contains(t, fields, "lines")
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(CreateAlert{VariantID: newID(), Type: "flood"})

	fields := fieldErrors(t, err)
	assert.Equal(t, "must be one of: low_stock, oos", fields["type"])
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, Validate(ReserveStock{VariantID: newID(), LocationID: newID(), Qty: 1}))
}
