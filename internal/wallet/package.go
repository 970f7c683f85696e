package wallet

// RechargePackage is a purchasable credit bundle. The price is in paise;
// base credits land in the purchased pool and bonus credits in the bonus
// pool, recorded separately in the ledger.
type RechargePackage struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PricePaise   int64  `json:"price_paise"`
	BaseCredits  int    `json:"base_credits"`
	BonusCredits int    `json:"bonus_credits"`
	Popular      bool   `json:"popular"`
	Active       bool   `json:"active"`
}

// TotalCredits returns the full credit value of the package.
func (p *RechargePackage) TotalCredits() int {
	return p.BaseCredits + p.BonusCredits
}
