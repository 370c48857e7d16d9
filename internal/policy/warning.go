package policy

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Code is a stable policy rule identifier.
type Code string

const (
	CodeHotelAboveCap          Code = "HOTEL_ABOVE_CAP"
	CodeEntertainmentAboveCap  Code = "ENTERTAINMENT_ABOVE_CAP"
	CodeAirfareAboveCap        Code = "AIRFARE_ABOVE_CAP"
	CodeTransportationAboveCap Code = "TRANSPORTATION_ABOVE_CAP"
	CodeOfficeAboveCap         Code = "OFFICE_ABOVE_CAP"
	CodeMealsAboveDailyCap     Code = "MEALS_ABOVE_DAILY_CAP"
	CodeTripDatesInvalid       Code = "TRIP_DATES_INVALID"
	CodeItemDateOutsideTrip    Code = "ITEM_DATE_OUTSIDE_TRIP"
)

const (
	scopeSeparator = "#"
	dateLayout     = "2006-01-02"
)

type Scope int

const (
	ScopeNone Scope = iota
	ScopeItem
	ScopeDate
)

// WarningCode disambiguates repeated violations of one rule. Render it with String.
type WarningCode struct {
	Base   Code
	Scope  Scope
	ItemID int64
	Date   time.Time
}

func ReportCode(base Code) WarningCode {
	return WarningCode{Base: base, Scope: ScopeNone}
}

func ItemCode(base Code, itemID int64) WarningCode {
	return WarningCode{Base: base, Scope: ScopeItem, ItemID: itemID}
}

func DateCode(base Code, date time.Time) WarningCode {
	return WarningCode{Base: base, Scope: ScopeDate, Date: Day(date)}
}

func (c WarningCode) String() string {
	switch c.Scope {
	case ScopeItem:
		return string(c.Base) + scopeSeparator + strconv.FormatInt(c.ItemID, 10)
	case ScopeDate:
		return string(c.Base) + scopeSeparator + c.Date.Format(dateLayout)
	default:
		return string(c.Base)
	}
}

// ParseWarningCode reverses String. A suffix that parses as a date is a date scope, an integer suffix is an item scope.
func ParseWarningCode(s string) (WarningCode, error) {
	base, suffix, scoped := strings.Cut(strings.TrimSpace(s), scopeSeparator)
	if base == "" {
		return WarningCode{}, fmt.Errorf("empty warning code")
	}
	if !scoped {
		return ReportCode(Code(base)), nil
	}
	if d, err := time.Parse(dateLayout, suffix); err == nil {
		return DateCode(Code(base), d), nil
	}
	id, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return WarningCode{}, fmt.Errorf("invalid warning code scope %q", suffix)
	}
	return ItemCode(Code(base), id), nil
}

type Warning struct {
	Code    WarningCode
	Message string
}

func (w Warning) Key() string {
	return w.Code.String()
}
