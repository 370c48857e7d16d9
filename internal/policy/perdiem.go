package policy

import (
	"strings"

	"github.com/shopspring/decimal"
)

var domesticCountries = []string{"united states", "usa", "united states of america"}

// Country returns the trimmed text after the last comma of a "City, Country" destination.
func Country(destination string) (string, bool) {
	idx := strings.LastIndex(destination, ",")
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(destination[idx+1:]), true
}

// IsDomestic treats a destination without a country part as domestic.
func IsDomestic(destination string) bool {
	country, ok := Country(destination)
	if !ok {
		return true
	}
	country = strings.ToLower(country)
	for _, c := range domesticCountries {
		if country == c {
			return true
		}
	}
	return false
}

type PerDiem struct {
	Days   int
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// PerDiem is zero unless both dates are set and departure is strictly before return.
// The return day itself is not counted.
func (e *Engine) PerDiem(trip Trip) PerDiem {
	return CalculatePerDiem(trip, e.limits.PerDiemDomesticRate, e.limits.PerDiemInternationalRate)
}

func CalculatePerDiem(trip Trip, domesticRate, internationalRate decimal.Decimal) PerDiem {
	zero := PerDiem{Rate: decimal.Zero, Amount: decimal.Zero}
	if !trip.hasDates() {
		return zero
	}

	dep, ret := Day(*trip.Departure), Day(*trip.Return)
	if !dep.Before(ret) {
		return zero
	}

	days := int(ret.Sub(dep).Hours() / 24)
	rate := internationalRate
	if IsDomestic(trip.Destination) {
		rate = domesticRate
	}

	return PerDiem{
		Days:   days,
		Rate:   rate,
		Amount: rate.Mul(decimal.NewFromInt(int64(days))).Round(2),
	}
}
