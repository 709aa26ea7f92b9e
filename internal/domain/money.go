package domain

import "github.com/shopspring/decimal"

// currencyPlaces is the display precision for all monetary amounts.
const currencyPlaces = 2

// RoundCurrency rounds an amount to 2 decimal places, half away from zero.
// All balance arithmetic goes through decimal so repeated deltas cannot
// accumulate binary float error.
func RoundCurrency(amount float64) float64 {
	out, _ := decimal.NewFromFloat(amount).Round(currencyPlaces).Float64()
	return out
}

// ShareOf returns round2(amount * percent / 100).
func ShareOf(amount, percent float64) float64 {
	out, _ := decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(percent)).
		Div(decimal.NewFromInt(100)).
		Round(currencyPlaces).
		Float64()
	return out
}

// FeeOf returns round2(amount * rate) for a fractional rate such as 0.05.
func FeeOf(amount, rate float64) float64 {
	out, _ := decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(rate)).
		Round(currencyPlaces).
		Float64()
	return out
}
