package domain

import "github.com/shopspring/decimal"

// CreditPack is a purchasable bundle of credits.
type CreditPack struct {
	ProductID   string          `json:"productID"`
	Credits     int64           `json:"credits"`
	PriceUSD    decimal.Decimal `json:"priceUSD"`
	DisplayName string          `json:"displayName"`
}

// StoreTransaction is the decoded payload of a signed store purchase.
type StoreTransaction struct {
	TransactionID string
	ProductID     string
	BundleID      string
}
