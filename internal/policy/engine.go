package policy

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Item is the policy view of one expense line.
type Item struct {
	ID          int64
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Category    string
}

// Trip is the policy view of report-level travel metadata. Nil dates mean unset.
type Trip struct {
	Destination string
	Departure   *time.Time
	Return      *time.Time
}

func (t Trip) hasDates() bool {
	return t.Departure != nil && t.Return != nil
}

type Engine struct {
	limits Limits
}

func NewEngine(limits Limits) *Engine {
	return &Engine{limits: limits}
}

func (e *Engine) Limits() Limits {
	return e.limits
}

// Evaluate returns the warnings for a report in item order, with meal warnings last by ascending date.
func (e *Engine) Evaluate(trip Trip, items []Item) []Warning {
	warnings := make([]Warning, 0)

	if trip.hasDates() && Day(*trip.Departure).After(Day(*trip.Return)) {
		warnings = append(warnings, Warning{
			Code:    ReportCode(CodeTripDatesInvalid),
			Message: "Trip dates invalid (departure after return)",
		})
	}

	outsideReported := false
	mealsByDay := make(map[time.Time]decimal.Decimal)

	for _, it := range items {
		if !outsideReported && trip.hasDates() && !it.Date.IsZero() && outsideTrip(it.Date, trip) {
			warnings = append(warnings, Warning{
				Code:    ReportCode(CodeItemDateOutsideTrip),
				Message: "Item date outside trip range",
			})
			outsideReported = true
		}

		if w, ok := e.capWarning(trip, it); ok {
			warnings = append(warnings, w)
		}

		if isMeal(it) && !it.Date.IsZero() {
			day := Day(it.Date)
			mealsByDay[day] = mealsByDay[day].Add(it.Amount)
		}
	}

	days := make([]time.Time, 0, len(mealsByDay))
	for day, total := range mealsByDay {
		if total.GreaterThan(e.limits.MealsDailyCap) {
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	for _, day := range days {
		warnings = append(warnings, Warning{
			Code:    DateCode(CodeMealsAboveDailyCap, day),
			Message: fmt.Sprintf("Meals exceed daily cap ($%s)", dollars(e.limits.MealsDailyCap)),
		})
	}

	return warnings
}

// Flagged reports whether Evaluate would return anything.
func (e *Engine) Flagged(trip Trip, items []Item) bool {
	return len(e.Evaluate(trip, items)) > 0
}

func (e *Engine) capWarning(trip Trip, it Item) (Warning, bool) {
	category := strings.ToLower(strings.TrimSpace(it.Category))

	var (
		base    Code
		limit   decimal.Decimal
		message string
	)

	switch {
	case category == "entertainment":
		base, limit = CodeEntertainmentAboveCap, e.limits.EntertainmentCap
		message = fmt.Sprintf("Entertainment above cap ($%s)", dollars(limit))
	case category == "hotel" || strings.Contains(category, "lodg"):
		base, limit = CodeHotelAboveCap, e.limits.HotelCap
		message = fmt.Sprintf("Hotel above nightly cap ($%s)", dollars(limit))
	case category == "airfare":
		limit = e.limits.AirfareInternationalCap
		if IsDomestic(trip.Destination) {
			limit = e.limits.AirfareDomesticCap
		}
		base = CodeAirfareAboveCap
		message = fmt.Sprintf("Airfare above cap ($%s)", dollars(limit))
	case category == "transportation":
		base, limit = CodeTransportationAboveCap, e.limits.TransportationCap
		message = fmt.Sprintf("Transportation above cap ($%s)", dollars(limit))
	case category == "office":
		base, limit = CodeOfficeAboveCap, e.limits.OfficeCap
		message = fmt.Sprintf("Office expenses above cap ($%s)", dollars(limit))
	default:
		return Warning{}, false
	}

	if !it.Amount.GreaterThan(limit) {
		return Warning{}, false
	}
	return Warning{Code: ItemCode(base, it.ID), Message: message}, true
}

func isMeal(it Item) bool {
	return strings.Contains(strings.ToLower(it.Category), "meal") ||
		strings.Contains(strings.ToLower(it.Description), "per diem")
}

func outsideTrip(date time.Time, trip Trip) bool {
	d := Day(date)
	return d.Before(Day(*trip.Departure)) || d.After(Day(*trip.Return))
}

func dollars(d decimal.Decimal) string {
	return d.Truncate(0).String()
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
