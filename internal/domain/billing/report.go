package billing

import (
	"github.com/shopspring/decimal"

	"github.com/wintercreative/lagoon/internal/domain/project"
)

// EnvironmentCost splits hourly charges by environment type
type EnvironmentCost struct {
	Prod decimal.Decimal `json:"prod"`
	Dev  decimal.Decimal `json:"dev"`
}

// AvailabilityCost is the priced total for all of a billing group's projects
// on one availability tier
type AvailabilityCost struct {
	HitCost         decimal.Decimal `json:"hitCost"`
	StorageCost     decimal.Decimal `json:"storageCost"`
	EnvironmentCost EnvironmentCost `json:"environmentCost"`
	Projects        []ProjectUsage  `json:"projects"`
}

// Report is the cost breakdown for a billing group and month. An
// availability entry is present only when at least one project billed on
// that tier.
type Report struct {
	GroupName string            `json:"groupName"`
	Month     Month             `json:"month"`
	Currency  CurrencyCode      `json:"currency"`
	High      *AvailabilityCost `json:"high,omitempty"`
	Standard  *AvailabilityCost `json:"standard,omitempty"`
}

// CostForPartition prices one availability partition's project usage
func (t *Table) CostForPartition(code CurrencyCode, availability project.Availability, usage []ProjectUsage) (*AvailabilityCost, error) {
	if len(usage) == 0 {
		return nil, nil
	}
	cr, err := t.Currency(code)
	if err != nil {
		return nil, err
	}
	rates, err := t.Rates(code, availability)
	if err != nil {
		return nil, err
	}

	cost := &AvailabilityCost{
		HitCost:     decimal.Zero,
		StorageCost: decimal.Zero,
		EnvironmentCost: EnvironmentCost{
			Prod: decimal.Zero,
			Dev:  decimal.Zero,
		},
		Projects: usage,
	}
	for _, u := range usage {
		cost.HitCost = cost.HitCost.Add(t.HitsCost(rates, u.Hits))
		cost.StorageCost = cost.StorageCost.Add(StorageCost(cr, u.StorageDays))
		if u.ProdHours > 0 {
			prod, err := ProdCost(code, rates, u.ProdHours)
			if err != nil {
				return nil, err
			}
			cost.EnvironmentCost.Prod = cost.EnvironmentCost.Prod.Add(prod)
		}
		if u.DevHours > 0 {
			dev, err := DevCost(code, rates, u.DevHours)
			if err != nil {
				return nil, err
			}
			cost.EnvironmentCost.Dev = cost.EnvironmentCost.Dev.Add(dev)
		}
	}
	return cost, nil
}
