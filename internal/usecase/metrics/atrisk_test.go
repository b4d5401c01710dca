package metrics

import (
	"testing"
	"time"

	"github.com/futig/dashboard-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtRiskUsers_Bands(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	entries := []entity.LastUseEntry{
		{Email: "medium@example.com", ID: "u1", LastUsePacific: now.Add(-40 * time.Hour).Format(time.RFC3339)},
		{Email: "high@example.com", ID: "u2", LastUsePacific: now.Add(-48 * time.Hour).Format(time.RFC3339)},
		{Email: "critical@example.com", ID: "u3", LastUsePacific: now.Add(-80 * time.Hour).Format(time.RFC3339)},
		{Email: "edge-high@example.com", ID: "u4", LastUsePacific: now.Add(-71 * time.Hour).Format(time.RFC3339)},
	}

	users := AtRiskUsers(entries, now)
	require.Len(t, users, 4)

	// Most inactive first.
	assert.Equal(t, "critical@example.com", users[0].Email)
	assert.Equal(t, entity.RiskLevelCritical, users[0].Risk)
	assert.Equal(t, 80, users[0].HoursSince)
	assert.Equal(t, 3, users[0].DaysSince)

	assert.Equal(t, "edge-high@example.com", users[1].Email)
	assert.Equal(t, entity.RiskLevelHigh, users[1].Risk)

	assert.Equal(t, "high@example.com", users[2].Email)
	assert.Equal(t, entity.RiskLevelHigh, users[2].Risk)

	assert.Equal(t, "medium@example.com", users[3].Email)
	assert.Equal(t, entity.RiskLevelMedium, users[3].Risk)
}

func TestAtRiskUsers_SkipsUnparseableTimestamps(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	users := AtRiskUsers([]entity.LastUseEntry{
		{Email: "ok@example.com", ID: "u1", LastUsePacific: "2026-08-18 06:00:00"},
		{Email: "broken@example.com", ID: "u2", LastUsePacific: "not a time"},
	}, now)

	require.Len(t, users, 1)
	assert.Equal(t, "ok@example.com", users[0].Email)
}
