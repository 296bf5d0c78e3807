package billing

import (
	"github.com/shopspring/decimal"

	"github.com/wintercreative/lagoon/internal/domain/project"
	"github.com/wintercreative/lagoon/internal/domain/shared"
)

// CurrencyCode identifies a priced currency
type CurrencyCode string

const (
	CurrencyUSD CurrencyCode = "USD"
	CurrencyGBP CurrencyCode = "GBP"
	CurrencyZAR CurrencyCode = "ZAR"
	CurrencyAUD CurrencyCode = "AUD"
)

// HitTier is one band of the progressive hit-pricing scale. Min and Max are
// inclusive hit counts.
type HitTier struct {
	Min int64
	Max int64
}

// AvailabilityRates carries the per-tier rates for one currency and
// availability. Hourly rates are optional; a currency without them cannot
// bill environment hours.
type AvailabilityRates struct {
	HitCosts        []decimal.Decimal
	HitBase         decimal.Decimal
	ProdSitePerHour *decimal.Decimal
	DevSitePerHour  *decimal.Decimal
}

// CurrencyRates is the full price list for one currency
type CurrencyRates struct {
	StoragePerDay decimal.Decimal
	Standard      *AvailabilityRates
	High          *AvailabilityRates
}

// Table is an immutable pricing table injected into the aggregation layer.
// Lookups fail fast rather than guessing a fallback rate.
type Table struct {
	tiers      []HitTier
	currencies map[CurrencyCode]CurrencyRates
}

// NewTable builds a pricing table from explicit tiers and currency rates
func NewTable(tiers []HitTier, currencies map[CurrencyCode]CurrencyRates) *Table {
	return &Table{tiers: tiers, currencies: currencies}
}

// Tiers returns the progressive hit bands, cheapest first
func (t *Table) Tiers() []HitTier {
	return t.tiers
}

// Currency returns the price list for a currency
func (t *Table) Currency(code CurrencyCode) (CurrencyRates, error) {
	cr, ok := t.currencies[code]
	if !ok {
		return CurrencyRates{}, shared.NewUnsupportedPricingError(string(code), "")
	}
	return cr, nil
}

// Rates resolves the rates for a currency and availability tier
func (t *Table) Rates(code CurrencyCode, availability project.Availability) (*AvailabilityRates, error) {
	cr, err := t.Currency(code)
	if err != nil {
		return nil, err
	}
	var rates *AvailabilityRates
	switch availability {
	case project.AvailabilityHigh:
		rates = cr.High
	case project.AvailabilityStandard:
		rates = cr.Standard
	}
	if rates == nil {
		return nil, shared.NewUnsupportedPricingError(string(code), string(availability))
	}
	return rates, nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

// DefaultTable returns the built-in price list. ZAR bills standard
// availability only and carries no hourly rates.
func DefaultTable() *Table {
	return NewTable(
		[]HitTier{
			{Min: 0, Max: 300_000},
			{Min: 300_001, Max: 2_500_000},
			{Min: 2_500_001, Max: 10_000_000},
			{Min: 10_000_001, Max: 99_999_999_999},
		},
		map[CurrencyCode]CurrencyRates{
			CurrencyUSD: {
				StoragePerDay: d("0.0333"),
				Standard: &AvailabilityRates{
					HitCosts:        []decimal.Decimal{d("0"), d("0.00015"), d("0.00007"), d("0.00003")},
					HitBase:         d("69"),
					ProdSitePerHour: dp("0.0417"),
					DevSitePerHour:  dp("0.0139"),
				},
				High: &AvailabilityRates{
					HitCosts:        []decimal.Decimal{d("0"), d("0.0003"), d("0.00014"), d("0.00006")},
					HitBase:         d("200"),
					ProdSitePerHour: dp("0.1389"),
					DevSitePerHour:  dp("0.0417"),
				},
			},
			CurrencyGBP: {
				StoragePerDay: d("0.0283"),
				Standard: &AvailabilityRates{
					HitCosts:        []decimal.Decimal{d("0"), d("0.00012"), d("0.000056"), d("0.000024")},
					HitBase:         d("25"),
					ProdSitePerHour: dp("0.0347"),
					DevSitePerHour:  dp("0.0116"),
				},
				High: &AvailabilityRates{
					HitCosts:        []decimal.Decimal{d("0"), d("0.0003"), d("0.00014"), d("0.00006")},
					HitBase:         d("80"),
					ProdSitePerHour: dp("0.1111"),
					DevSitePerHour:  dp("0.0347"),
				},
			},
			CurrencyZAR: {
				StoragePerDay: d("0.0333"),
				Standard: &AvailabilityRates{
					HitCosts: []decimal.Decimal{d("0"), d("0.0015"), d("0.0007"), d("0.0003")},
					HitBase:  d("280"),
				},
			},
			CurrencyAUD: {
				StoragePerDay: d("0.06"),
				Standard: &AvailabilityRates{
					HitCosts:        []decimal.Decimal{d("0"), d("0.00027"), d("0.00018"), d("0.00012")},
					HitBase:         d("125"),
					ProdSitePerHour: dp("0.075"),
					DevSitePerHour:  dp("0.025"),
				},
				High: &AvailabilityRates{
					HitCosts:        []decimal.Decimal{d("0"), d("0.00054"), d("0.00036"), d("0.00024")},
					HitBase:         d("360"),
					ProdSitePerHour: dp("0.25"),
					DevSitePerHour:  dp("0.075"),
				},
			},
		},
	)
}
