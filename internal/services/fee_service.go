package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/elentis/reconcile/internal/config"
	"github.com/elentis/reconcile/internal/models"
)

const (
	FeeWithdrawalCrypto = "withdrawal_crypto"
	FeeWithdrawalFiat   = "withdrawal_fiat"
)

type FeeCalculator struct {
	rates map[string]decimal.Decimal
}

func NewFeeCalculator(cfg config.FeeConfig) (*FeeCalculator, error) {
	rates := make(map[string]decimal.Decimal, len(cfg))
	for kind, raw := range cfg {
		if raw == "" {
			continue
		}
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("fee rate %s: %w", kind, err)
		}
		if rate.IsNegative() {
			return nil, fmt.Errorf("fee rate %s is negative", kind)
		}
		rates[kind] = rate
	}
	return &FeeCalculator{rates: rates}, nil
}

// ComputeFee returns floor(amount * rate) in minor units. Unknown kinds are free.
func (f *FeeCalculator) ComputeFee(kind string, amount int64) int64 {
	rate, ok := f.rates[kind]
	if !ok {
		return 0
	}
	return decimal.NewFromInt(amount).Mul(rate).Floor().IntPart()
}

func withdrawalFeeKind(rail models.Rail) string {
	if rail == models.RailCard {
		return FeeWithdrawalFiat
	}
	return FeeWithdrawalCrypto
}
