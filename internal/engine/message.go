package engine

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"stock-alerts/internal/models"
	"stock-alerts/internal/notify"
)

// FormatMessage renders the alert body for a triggered threshold in markup m.
// Every literal part is escaped, so symbols such as BRK_B stay deliverable.
func FormatMessage(m notify.Markup, source, symbol string, dir models.Direction, price float64, threshold decimal.Decimal) string {
	header := m.Escape(fmt.Sprintf("🚨 %s: ", strings.ToUpper(source))) +
		m.Bold(fmt.Sprintf("%s %s", symbol, strings.ToUpper(string(dir))))
	current := m.Escape("💰 $" + formatPrice(price))
	limit := m.Escape(fmt.Sprintf("%s %s $%s", dir.Emoji(), dir.Comparator(), formatPrice(threshold.InexactFloat64())))
	return header + "\n" + current + "\n" + limit
}

// formatPrice renders a price with two decimals and thousands separators.
func formatPrice(p float64) string {
	return humanize.FormatFloat("#,###.##", p)
}

// Banner is the line logged when a run starts.
func Banner(source, notifier, ledger, clock string) string {
	return fmt.Sprintf("%s + %s + %s Alerts - %s", strings.ToUpper(source), notifier, ledger, clock)
}
