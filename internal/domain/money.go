package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Lane is an independent currency track in which balances are kept.
type Lane string

const (
	LaneDivisas Lane = "divisas"
	LaneBCV     Lane = "bcv"
	LaneEuroBCV Lane = "euro_bcv"
)

// Lanes lists every lane in display order.
var Lanes = []Lane{LaneBCV, LaneDivisas, LaneEuroBCV}

// ParseLane maps the loose names used in chat to a Lane. An empty value
// defaults to the bcv lane.
func ParseLane(s string) (Lane, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bcv", "bs", "bolivares", "bolívares", "dolar bcv", "dólar bcv":
		return LaneBCV, nil
	case "divisas", "divisa", "usd", "efectivo", "cash", "zelle":
		return LaneDivisas, nil
	case "euro_bcv", "eurobcv", "euro", "euros", "euro bcv":
		return LaneEuroBCV, nil
	}
	return "", fmt.Errorf("%w: unknown currency lane %q", ErrInvalidInput, s)
}

func (l Lane) Label() string {
	switch l {
	case LaneDivisas:
		return "Divisas"
	case LaneEuroBCV:
		return "Euro BCV"
	default:
		return "BCV"
	}
}

// Amount is either a simple amount in one lane or a dual amount carrying a
// bcv value and an independent divisa-equivalent value.
type Amount struct {
	dual   bool
	lane   Lane
	value  decimal.Decimal
	divisa decimal.Decimal
}

func Simple(lane Lane, v decimal.Decimal) Amount {
	return Amount{lane: lane, value: Round2(v)}
}

func Dual(bcv, divisa decimal.Decimal) Amount {
	return Amount{dual: true, lane: LaneBCV, value: Round2(bcv), divisa: Round2(divisa)}
}

func (a Amount) IsDual() bool { return a.dual }

// Lane is the lane of the primary value. Dual amounts always live in bcv.
func (a Amount) Lane() Lane { return a.lane }

func (a Amount) Primary() decimal.Decimal { return a.value }

// Divisa returns the divisa-equivalent of a dual amount.
func (a Amount) Divisa() (decimal.Decimal, bool) {
	if !a.dual {
		return decimal.Zero, false
	}
	return a.divisa, true
}

func (a Amount) String() string {
	if a.dual {
		return fmt.Sprintf("%s BCV / %s divisas", FormatUSD(a.value), FormatUSD(a.divisa))
	}
	return fmt.Sprintf("%s %s", FormatUSD(a.value), a.lane.Label())
}

// Round2 rounds to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func FormatUSD(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func FormatBs(d decimal.Decimal) string {
	return "Bs. " + d.StringFixed(2)
}
