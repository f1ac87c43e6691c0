package metadata

import (
	"fmt"
	"strings"
)

// StockSource tells where a vaccine lot came from.
type StockSource string

const (
	SourceDOHAllocation StockSource = "doh-allocation"
	SourceLGUPurchase   StockSource = "lgu-purchase"
	SourceDonation      StockSource = "donation"
	SourceTransfer      StockSource = "transfer"
	SourceOther         StockSource = "other"
)

func (s StockSource) IsValid() bool {
	switch s {
	case SourceDOHAllocation, SourceLGUPurchase, SourceDonation, SourceTransfer:
		return true
	default:
		return false
	}
}

// isPredefined accepts free-form "other ..." sources, e.g. "other-private-clinic".
func (s StockSource) isPredefined() bool {
	return s.ContainsKeyword(string(SourceOther))
}

func NewStockSource(value string) (StockSource, error) {
	normalized := strings.Replace(strings.ToLower(strings.TrimSpace(value)), " ", "-", -1)
	if normalized == "" {
		return SourceDOHAllocation, nil
	}

	source := StockSource(normalized)
	if !source.IsValid() && !source.isPredefined() {
		return source, fmt.Errorf(
			"value not valid, only valid values are: %s, %s, %s, %s, %s",
			SourceDOHAllocation, SourceLGUPurchase, SourceDonation, SourceTransfer, SourceOther,
		)
	}

	return source, nil
}

func (s StockSource) String() string {
	return string(s)
}

func (s StockSource) ContainsKeyword(keyword string) bool {
	return strings.Contains(string(s), keyword)
}
