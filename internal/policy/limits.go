package policy

import (
	"fmt"

	"github.com/frahmantamala/expense-workflow/internal"
	"github.com/shopspring/decimal"
)

// Limits are the monetary knobs of the expense policy.
type Limits struct {
	HotelCap                 decimal.Decimal
	EntertainmentCap         decimal.Decimal
	AirfareDomesticCap       decimal.Decimal
	AirfareInternationalCap  decimal.Decimal
	TransportationCap        decimal.Decimal
	OfficeCap                decimal.Decimal
	MealsDailyCap            decimal.Decimal
	PerDiemDomesticRate      decimal.Decimal
	PerDiemInternationalRate decimal.Decimal
	MaxItemAmount            decimal.Decimal
}

func DefaultLimits() Limits {
	return Limits{
		HotelCap:                 decimal.RequireFromString("250.00"),
		EntertainmentCap:         decimal.RequireFromString("100.00"),
		AirfareDomesticCap:       decimal.RequireFromString("500.00"),
		AirfareInternationalCap:  decimal.RequireFromString("1000.00"),
		TransportationCap:        decimal.RequireFromString("150.00"),
		OfficeCap:                decimal.RequireFromString("200.00"),
		MealsDailyCap:            decimal.RequireFromString("75.00"),
		PerDiemDomesticRate:      decimal.RequireFromString("25.00"),
		PerDiemInternationalRate: decimal.RequireFromString("50.00"),
		MaxItemAmount:            decimal.RequireFromString("999999.99"),
	}
}

// LimitsFromConfig overlays configured values on DefaultLimits.
func LimitsFromConfig(cfg internal.PolicyConfig) (Limits, error) {
	limits := DefaultLimits()

	overrides := []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"hotel_cap", cfg.HotelCap, &limits.HotelCap},
		{"entertainment_cap", cfg.EntertainmentCap, &limits.EntertainmentCap},
		{"airfare_domestic_cap", cfg.AirfareDomesticCap, &limits.AirfareDomesticCap},
		{"airfare_international_cap", cfg.AirfareInternationalCap, &limits.AirfareInternationalCap},
		{"transportation_cap", cfg.TransportationCap, &limits.TransportationCap},
		{"office_cap", cfg.OfficeCap, &limits.OfficeCap},
		{"meals_daily_cap", cfg.MealsDailyCap, &limits.MealsDailyCap},
		{"per_diem_domestic_rate", cfg.PerDiemDomesticRate, &limits.PerDiemDomesticRate},
		{"per_diem_international_rate", cfg.PerDiemInternationalRate, &limits.PerDiemInternationalRate},
		{"max_item_amount", cfg.MaxItemAmount, &limits.MaxItemAmount},
	}

	for _, o := range overrides {
		if o.value == "" {
			continue
		}
		d, err := decimal.NewFromString(o.value)
		if err != nil {
			return Limits{}, fmt.Errorf("policy %s: %w", o.name, err)
		}
		if !d.IsPositive() {
			return Limits{}, fmt.Errorf("policy %s must be positive, got %s", o.name, o.value)
		}
		*o.dst = d.Round(2)
	}

	return limits, nil
}
