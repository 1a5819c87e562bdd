package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RateSource looks up the exchange rate that converts one unit of currency
// into the service's base currency on a given date.
type RateSource interface {
	Rate(ctx context.Context, date time.Time, currency string) (decimal.Decimal, error)
}

// convertAmount fills t.ConvertedAmount from the rate source. With no
// source configured the converted amount stays null. A failed lookup fails
// the whole operation.
func convertAmount(ctx context.Context, rates RateSource, t *Transaction) error {
	if rates == nil {
		t.ConvertedAmount = decimal.NullDecimal{}
		return nil
	}
	rate, err := rates.Rate(ctx, t.DateTime, t.Currency)
	if err != nil {
		return fmt.Errorf("convert %s on %s: %w", t.Currency, t.Date, err)
	}
	t.ConvertedAmount = decimal.NewNullDecimal(t.Amount.Mul(rate))
	return nil
}
