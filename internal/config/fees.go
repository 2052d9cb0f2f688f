package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// FeeSchedule holds the fee configuration applied to donation credits.
// Percentages are expressed as percent values (2.9 means 2.9%); the fixed
// component is in minor currency units.
type FeeSchedule struct {
	PlatformFeePercent   float64
	ProcessingFeePercent float64
	ProcessingFeeFixed   int64
}

// PayoutConfig holds the payout-side settings. The payout platform fee is
// deliberately a separate knob from the donation platform fee: it is a
// withdrawal fee, not a reuse of the donation fee schedule.
type PayoutConfig struct {
	PlatformFeePercent float64
	MinimumAmount      int64 // minimum available balance to request a payout
	TransferTimeout    time.Duration
	DebtorBIC          string // BIC used on generated bank disbursement instructions
}

// LoadFeeSchedule reads the donation fee schedule from the environment.
// Defaults match the platform's published pricing: 5% platform fee and
// 2.9% + 30 processing fee.
func LoadFeeSchedule() *FeeSchedule {
	return &FeeSchedule{
		PlatformFeePercent:   getEnvAsFloat("PLATFORM_FEE_PERCENT", 5.0),
		ProcessingFeePercent: getEnvAsFloat("PROCESSING_FEE_PERCENT", 2.9),
		ProcessingFeeFixed:   getEnvAsInt64("PROCESSING_FEE_FIXED", 30),
	}
}

// LoadPayoutConfig reads payout settings from the environment.
func LoadPayoutConfig() *PayoutConfig {
	return &PayoutConfig{
		PlatformFeePercent: getEnvAsFloat("PAYOUT_FEE_PERCENT", 5.0),
		MinimumAmount:      getEnvAsInt64("PAYOUT_MINIMUM_AMOUNT", 2500),
		TransferTimeout:    getEnvAsDuration("PAYOUT_TRANSFER_TIMEOUT", 15*time.Second),
		DebtorBIC:          getEnv("PAYOUT_DEBTOR_BIC", "GIVEHUBX"),
	}
}

// Validate rejects fee schedules that could produce negative fees or eat
// more than the full amount. Called once at startup; failure is fatal.
func (fs *FeeSchedule) Validate() error {
	if fs.PlatformFeePercent < 0 {
		return fmt.Errorf("platform fee percent must not be negative, got %v", fs.PlatformFeePercent)
	}
	if fs.ProcessingFeePercent < 0 {
		return fmt.Errorf("processing fee percent must not be negative, got %v", fs.ProcessingFeePercent)
	}
	if fs.ProcessingFeeFixed < 0 {
		return fmt.Errorf("processing fee fixed must not be negative, got %d", fs.ProcessingFeeFixed)
	}
	if fs.PlatformFeePercent+fs.ProcessingFeePercent >= 100 {
		return fmt.Errorf("combined fee percentages must be below 100, got %v", fs.PlatformFeePercent+fs.ProcessingFeePercent)
	}
	return nil
}

// Validate checks the payout configuration. Called once at startup.
func (pc *PayoutConfig) Validate() error {
	if pc.PlatformFeePercent < 0 || pc.PlatformFeePercent >= 100 {
		return fmt.Errorf("payout fee percent must be in [0, 100), got %v", pc.PlatformFeePercent)
	}
	if pc.MinimumAmount < 0 {
		return fmt.Errorf("minimum payout amount must not be negative, got %d", pc.MinimumAmount)
	}
	if pc.TransferTimeout <= 0 {
		return fmt.Errorf("transfer timeout must be positive, got %v", pc.TransferTimeout)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
