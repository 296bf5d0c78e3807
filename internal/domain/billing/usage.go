package billing

import "github.com/shopspring/decimal"

// megabyte scales raw byte-days into the storage-day unit rates are quoted in
var megabyte = decimal.NewFromInt(1_000_000)

// EnvironmentUsage is one environment's measured consumption for a month
type EnvironmentUsage struct {
	EnvironmentID int
	Production    bool
	Hits          int64
	StorageBytes  int64
	Hours         int64
}

// ProjectUsage is a project's consumption folded down from its environments.
// Hits accumulate from non-production environments only; production traffic
// is covered by the production-hours rate.
type ProjectUsage struct {
	ProjectID   int             `json:"projectId"`
	ProjectName string          `json:"projectName"`
	Hits        int64           `json:"hits"`
	StorageDays decimal.Decimal `json:"storageDays"`
	ProdHours   int64           `json:"prodHours"`
	DevHours    int64           `json:"devHours"`
}

// FoldUsage sums per-environment measurements into project usage
func FoldUsage(projectID int, projectName string, envs []EnvironmentUsage) ProjectUsage {
	u := ProjectUsage{ProjectID: projectID, ProjectName: projectName, StorageDays: decimal.Zero}
	for _, e := range envs {
		u.StorageDays = u.StorageDays.Add(decimal.NewFromInt(e.StorageBytes).Div(megabyte))
		if e.Production {
			u.ProdHours += e.Hours
		} else {
			u.Hits += e.Hits
			u.DevHours += e.Hours
		}
	}
	return u
}
