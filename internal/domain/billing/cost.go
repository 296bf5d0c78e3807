package billing

import (
	"github.com/shopspring/decimal"

	"github.com/wintercreative/lagoon/internal/domain/shared"
)

// HitsCost prices a hit count on the progressive tier scale. Each tier bills
// the hits falling inside its band at the tier's rate; the base fee applies
// once, and only when there are billable hits at all.
func (t *Table) HitsCost(rates *AvailabilityRates, hits int64) decimal.Decimal {
	if hits <= 0 {
		return decimal.Zero
	}
	total := rates.HitBase
	for i, tier := range t.tiers {
		if hits < tier.Min || i >= len(rates.HitCosts) {
			break
		}
		inTier := hits
		if inTier > tier.Max {
			inTier = tier.Max
		}
		if tier.Min > 0 {
			inTier = inTier - tier.Min + 1
		}
		total = total.Add(decimal.NewFromInt(inTier).Mul(rates.HitCosts[i]))
	}
	return total
}

// StorageCost prices accumulated storage days for a currency
func StorageCost(cr CurrencyRates, storageDays decimal.Decimal) decimal.Decimal {
	return storageDays.Mul(cr.StoragePerDay)
}

// ProdCost prices production environment hours. Currencies without hourly
// rates cannot bill hours and fail fast.
func ProdCost(code CurrencyCode, rates *AvailabilityRates, hours int64) (decimal.Decimal, error) {
	if rates.ProdSitePerHour == nil {
		return decimal.Zero, shared.NewUnsupportedPricingError(string(code), "hourly production rate")
	}
	return decimal.NewFromInt(hours).Mul(*rates.ProdSitePerHour), nil
}

// DevCost prices development environment hours
func DevCost(code CurrencyCode, rates *AvailabilityRates, hours int64) (decimal.Decimal, error) {
	if rates.DevSitePerHour == nil {
		return decimal.Zero, shared.NewUnsupportedPricingError(string(code), "hourly development rate")
	}
	return decimal.NewFromInt(hours).Mul(*rates.DevSitePerHour), nil
}
