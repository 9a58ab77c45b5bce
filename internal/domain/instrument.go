package domain

// Instrument is a tradable contract as listed by the exchange.
type Instrument struct {
	Symbol    string `json:"symbol"`
	BaseCoin  string `json:"base_coin"`
	QuoteCoin string `json:"quote_coin"`
	Status    string `json:"status"`
}

// Tradable reports whether the exchange currently accepts orders for it.
func (i Instrument) Tradable() bool {
	return i.Status == "Trading"
}
