package services

import (
	"errors"
	"math"

	"github.com/givehub/backend/internal/config"
)

var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrAmountBelowFees    = errors.New("amount does not cover the fee schedule")
	ErrInvalidFeeSchedule = errors.New("invalid fee schedule")
)

// FeeBreakdown is the split of a gross amount into fees and the net amount
// credited to a campaign. All values are in minor currency units and
// Amount == PlatformFee + ProcessingFee + NetAmount always holds exactly,
// because the net is derived by subtraction after the fees are rounded.
type FeeBreakdown struct {
	Amount        int64 `json:"amount"`
	PlatformFee   int64 `json:"platformFee"`
	ProcessingFee int64 `json:"processingFee"`
	NetAmount     int64 `json:"netAmount"`
}

// CalculateFees computes the fee split for a gross amount under the given
// schedule. Pure function, no side effects.
//
// Rounding policy: each fee is rounded to the minor unit half-up
// (0.5 cents rounds to 1 cent). The net amount is whatever remains, so the
// split reconciles to the gross amount with no drift.
//
// Amounts the fees would consume entirely are rejected with
// ErrAmountBelowFees: a credit must never push a balance downward.
func CalculateFees(amount int64, sched config.FeeSchedule) (*FeeBreakdown, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := sched.Validate(); err != nil {
		return nil, ErrInvalidFeeSchedule
	}

	processingFee := roundHalfUp(float64(amount)*sched.ProcessingFeePercent/100) + sched.ProcessingFeeFixed
	platformFee := roundHalfUp(float64(amount) * sched.PlatformFeePercent / 100)
	netAmount := amount - processingFee - platformFee
	if netAmount <= 0 {
		return nil, ErrAmountBelowFees
	}

	return &FeeBreakdown{
		Amount:        amount,
		PlatformFee:   platformFee,
		ProcessingFee: processingFee,
		NetAmount:     netAmount,
	}, nil
}

// PayoutFee computes the platform's withdrawal fee on a payout amount,
// rounded half-up to the minor unit.
func PayoutFee(amount int64, percent float64) int64 {
	return roundHalfUp(float64(amount) * percent / 100)
}

// roundHalfUp rounds a positive value to the nearest integer, ties up.
func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}
