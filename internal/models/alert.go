package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Direction is the side of a threshold that triggers an alert.
type Direction string

const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

// Directions lists every direction in evaluation order.
var Directions = []Direction{DirectionAbove, DirectionBelow}

// Triggered reports whether price crosses threshold in this direction.
// Both comparisons are inclusive.
func (d Direction) Triggered(price float64, threshold decimal.Decimal) bool {
	p := decimal.NewFromFloat(price)
	switch d {
	case DirectionAbove:
		return p.GreaterThanOrEqual(threshold)
	case DirectionBelow:
		return p.LessThanOrEqual(threshold)
	default:
		return false
	}
}

// Emoji returns the trend marker used in alert messages.
func (d Direction) Emoji() string {
	if d == DirectionAbove {
		return "📈"
	}
	return "📉"
}

// Comparator returns the comparison sign used in alert messages.
func (d Direction) Comparator() string {
	if d == DirectionAbove {
		return ">"
	}
	return "<"
}

// AlertKey identifies an alert for deduplication. The calendar day is
// supplied by the ledger that stores it.
type AlertKey struct {
	Source    string
	Symbol    string
	Threshold decimal.Decimal
	Direction Direction
}

// ThresholdText is the canonical text form used in persisted keys, so that
// 67.3 and 67.30 identify the same threshold.
func (k AlertKey) ThresholdText() string {
	return k.Threshold.String()
}

func (k AlertKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Source, k.Symbol, k.ThresholdText(), k.Direction)
}

// AlertRecord is a delivered alert as stored in the ledger.
type AlertRecord struct {
	Source    string    `db:"source" json:"source"`
	Symbol    string    `db:"symbol" json:"symbol"`
	Threshold string    `db:"threshold" json:"threshold"`
	Direction Direction `db:"direction" json:"direction"`
	Day       string    `db:"alerted_date" json:"day"`
	Time      string    `db:"alerted_time" json:"time"`
	Price     float64   `db:"price" json:"price"`
}

// Layouts for the day and time-of-day columns of an AlertRecord.
const (
	DayLayout  = "2006-01-02"
	TimeLayout = "15:04:05"
)
