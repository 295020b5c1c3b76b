package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Amount is a monetary value stored in BSON as its canonical decimal string.
// decimal.Decimal has no exported fields, so without the custom marshalers it
// would silently round-trip through MongoDB as an empty document.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps a decimal value.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// ParseAmount parses a decimal string into an Amount.
func ParseAmount(value string) (Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount: %w", err)
	}
	return Amount{Decimal: d}, nil
}

// MarshalBSONValue encodes the amount as a string.
func (a Amount) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(a.String())
}

// UnmarshalBSONValue decodes the amount from its string representation.
func (a *Amount) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	var value string
	if err := raw.Unmarshal(&value); err != nil {
		return fmt.Errorf("decode amount: %w", err)
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Errorf("parse stored amount %q: %w", value, err)
	}

	a.Decimal = d
	return nil
}
