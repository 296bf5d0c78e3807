package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wintercreative/lagoon/internal/domain/shared"
)

// Month is a calendar billing period
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a "YYYY-MM" billing period
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, shared.NewValidationError(fmt.Sprintf("Invalid billing month: %s", s))
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// String renders the period back as "YYYY-MM"
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// MarshalJSON renders the period as a "YYYY-MM" string
func (m Month) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON parses a "YYYY-MM" string period
func (m *Month) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Start returns the first instant of the period in UTC
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the following period in UTC
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0)
}

// Days returns the number of days in the period
func (m Month) Days() int {
	return int(m.End().Sub(m.Start()).Hours() / 24)
}

// MetricsSource reports measured consumption per environment for one billing
// period. Implementations may be remote; failures surface as errors and the
// aggregation layer decides how to absorb them.
type MetricsSource interface {
	// HitsForEnvironment returns total request hits for the environment's
	// router namespace over the month
	HitsForEnvironment(ctx context.Context, openshiftProjectName string, month Month) (int64, error)
	// StorageForEnvironment returns accumulated storage in byte-days over
	// the month
	StorageForEnvironment(ctx context.Context, environmentID int, month Month) (int64, error)
	// HoursForEnvironment returns the hours the environment existed during
	// the month
	HoursForEnvironment(ctx context.Context, environmentID int, month Month) (int64, error)
}
