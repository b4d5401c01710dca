package metrics

import (
	"sort"
	"time"

	"github.com/futig/dashboard-backend/internal/entity"
)

// Risk bands over hours of inactivity. The upstream feed is already
// filtered to >36h, so everything it returns is at least medium risk.
const (
	highRiskHours     = 48
	criticalRiskHours = 72
)

// AtRiskUsers scores the last-use feed, most inactive first.
func AtRiskUsers(entries []entity.LastUseEntry, now time.Time) []entity.AtRiskUser {
	users := make([]entity.AtRiskUser, 0, len(entries))

	for _, e := range entries {
		lastUse, err := parseLastUse(e.LastUsePacific)
		if err != nil {
			continue
		}

		hours := int(now.Sub(lastUse).Hours())
		users = append(users, entity.AtRiskUser{
			Email:      e.Email,
			ID:         e.ID,
			LastUse:    lastUse,
			HoursSince: hours,
			DaysSince:  hours / 24,
			Risk:       riskLevel(hours),
		})
	}

	sort.SliceStable(users, func(i, j int) bool {
		return users[i].HoursSince > users[j].HoursSince
	})

	return users
}

func riskLevel(hours int) entity.RiskLevel {
	switch {
	case hours >= criticalRiskHours:
		return entity.RiskLevelCritical
	case hours >= highRiskHours:
		return entity.RiskLevelHigh
	default:
		return entity.RiskLevelMedium
	}
}

func parseLastUse(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		ts, err := time.Parse(layout, value)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
