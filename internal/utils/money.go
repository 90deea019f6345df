package utils

import (
	"github.com/shopspring/decimal"
)

// PlatformFeeRate is the operator's fixed cut of a processor-settled payment.
var PlatformFeeRate = decimal.RequireFromString("0.025")

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds to cents, half-up for non-negative amounts.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// IsCents reports whether d carries no more than two fractional digits.
func IsCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// PercentOf returns round(base * pct / 100, 2).
func PercentOf(base, pct decimal.Decimal) decimal.Decimal {
	return RoundMoney(base.Mul(pct).Div(hundred))
}

// CentsToDecimal converts a processor amount in minor units.
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

type FeeSplit struct {
	ProcessorFee decimal.Decimal
	PlatformFee  decimal.Decimal
	NetAmount    decimal.Decimal
}

// ComputeFeeSplit splits a settled amount so that
// settled == processor_fee + platform_fee + net_amount holds exactly.
func ComputeFeeSplit(settled, processorFee decimal.Decimal) (FeeSplit, error) {
	if !settled.IsPositive() || !IsCents(settled) {
		return FeeSplit{}, ValidationErrorf("settled amount %s must be a positive cent amount", settled)
	}
	if processorFee.IsNegative() || !IsCents(processorFee) {
		return FeeSplit{}, ValidationErrorf("processor fee %s must be a non-negative cent amount", processorFee)
	}
	platformFee := RoundMoney(settled.Mul(PlatformFeeRate))
	net := settled.Sub(processorFee).Sub(platformFee)
	if net.IsNegative() {
		return FeeSplit{}, ValidationErrorf("fees %s + %s exceed settled amount %s", processorFee, platformFee, settled)
	}
	return FeeSplit{
		ProcessorFee: processorFee,
		PlatformFee:  platformFee,
		NetAmount:    net,
	}, nil
}
