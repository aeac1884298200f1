// Package pricing snapshots tier prices onto orders and formats amounts.
package pricing

import (
	"FortuneBox/internal/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const Currency = "KRW"

type Snapshot struct {
	TierCode string `json:"tier_code"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
}

// CurrentSnapshot captures the tier price at order creation. Later catalog
// edits do not affect orders that already hold a snapshot.
func CurrentSnapshot(tier models.Tier) Snapshot {
	return Snapshot{TierCode: tier.Code, Price: tier.Price, Currency: Currency}
}

// RefundAmount is the full price paid.
func RefundAmount(order models.Order) int64 {
	return order.Price
}

var printer = message.NewPrinter(language.Korean)

// Format renders amount as won with digit grouping, e.g. 30000 -> "₩30,000".
func Format(amount int64) string {
	return printer.Sprintf("₩%d", amount)
}
