package entity

import "time"

// UsersToday is the daily headline metric.
type UsersToday struct {
	UniqueUsers    int    `json:"unique_users"`
	UniqueSessions int    `json:"unique_sessions"`
	Date           string `json:"date"`
}

// LastUseEntry is one row of the at-risk feed. The upstream service
// filters the feed to users inactive for more than 36 hours.
type LastUseEntry struct {
	Email          string `json:"email"`
	ID             string `json:"id"`
	LastUsePacific string `json:"last_use_pacific"`
}

// DAUPoint is one day of the daily-active-users series.
type DAUPoint struct {
	Date           string   `json:"date"`
	UniqueUsers    int      `json:"unique_users"`
	UserEmails     []string `json:"user_emails"`
	UniqueSessions int      `json:"unique_sessions"`
}

// WeeklyPoint is one week of the weekly-users series.
type WeeklyPoint struct {
	WeekStart      string   `json:"week_start"`
	UniqueUsers    int      `json:"unique_users"`
	UserEmails     []string `json:"user_emails"`
	UniqueSessions int      `json:"unique_sessions"`
}

// UserSessionsToday aggregates today's sessions for one user.
type UserSessionsToday struct {
	UserID            string `json:"user_id"`
	Email             string `json:"email"`
	TotalSessions     int    `json:"total_sessions"`
	LatestPacificTime string `json:"latest_pacific_time"`
}

// SessionEvent is one session occurrence in the raw session feeds.
type SessionEvent struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Date        string `json:"date"`
	PacificTime string `json:"pacific_time"`
}

// GeneralMetrics carries the upstream-computed engagement ratios.
// Stickiness is the repeat-usage ratio; it is never recomputed locally.
type GeneralMetrics struct {
	AvgSessionsPerDay   float64 `json:"avg_sessions_per_day"`
	AvgSessionsPerWeek  float64 `json:"avg_sessions_per_week"`
	AvgSessionsPerMonth float64 `json:"avg_sessions_per_month"`
	Stickiness          float64 `json:"stickiness"`
}

// UserAnalyticsDetail is one user row inside a center.
type UserAnalyticsDetail struct {
	UserID               string   `json:"user_id"`
	Email                string   `json:"email"`
	CenterName           *string  `json:"center_name"`
	LastSessionTime      *string  `json:"last_session_time"`
	TotalSessions        int      `json:"total_sessions"`
	UserType             string   `json:"user_type"`
	CurrExtensionVersion *string  `json:"curr_extension_version"`
	FollowedUpSince      *string  `json:"followed_up_since"`
	IgnoreUser           bool     `json:"ignore_user"`
	AvgSessionsDaily     *float64 `json:"avg_sessions_daily,omitempty"`
	AvgSessionsWeekly    *float64 `json:"avg_sessions_weekly,omitempty"`
	AvgSessionsMonthly   *float64 `json:"avg_sessions_monthly,omitempty"`
	Notes                *string  `json:"notes"`
}

// CenterAnalyticsSummary is one center with its users and the aggregates
// the upstream service computed for it. Aggregates are never recomputed
// locally; after a single-row patch they go stale until the next full fetch.
type CenterAnalyticsSummary struct {
	CenterName             string                `json:"center_name"`
	TotalUsers             int                   `json:"total_users"`
	ActiveUsersCount       int                   `json:"active_users_count"`
	InactiveUsersCount     int                   `json:"inactive_users_count"`
	AverageSessionsPerUser float64               `json:"average_sessions_per_user"`
	Users                  []UserAnalyticsDetail `json:"users"`
}

// InactiveUsersOverview summarizes inactivity across all centers.
type InactiveUsersOverview struct {
	TotalInactiveUsers    int     `json:"total_inactive_users"`
	MostInactiveCenter    *string `json:"most_inactive_center_name"`
	AverageInactivityDays float64 `json:"average_inactivity_days"`
}

// CenterAnalytics is the full per-center analytics payload.
type CenterAnalytics struct {
	InactiveUsersOverview InactiveUsersOverview    `json:"inactive_users_overview"`
	CentersData           []CenterAnalyticsSummary `json:"centers_data"`
	InactiveThresholdDays int                      `json:"inactive_threshold_days"`
}

// DashboardSnapshot is the assembled dashboard view model.
type DashboardSnapshot struct {
	UsersToday          UsersToday          `json:"users_today"`
	LastUse             []LastUseEntry      `json:"last_use"`
	DAU                 []DAUPoint          `json:"dau"`
	WeeklyUsers         []WeeklyPoint       `json:"weekly_users"`
	SessionsTodayByUser []UserSessionsToday `json:"sessions_today_by_user"`
	SessionsToday       []SessionEvent      `json:"sessions_today"`
	AllSessions         []SessionEvent      `json:"all_sessions"`
	AtRisk              []AtRiskUser        `json:"at_risk"`
	CenterAnalytics     CenterAnalytics     `json:"center_analytics"`
	GeneralMetrics      *GeneralMetrics     `json:"general_metrics,omitempty"`
	FetchedAt           time.Time           `json:"fetched_at"`
}

// UserPatch is a partial update applied to a single user row after the
// corresponding upstream mutation has been confirmed. Nil fields are
// left untouched.
type UserPatch struct {
	IgnoreUser       *bool
	Notes            *string
	ExtensionVersion *string
}

type RiskLevel string

const (
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// AtRiskUser is a last-use entry enriched with local risk scoring.
type AtRiskUser struct {
	Email      string    `json:"email"`
	ID         string    `json:"id"`
	LastUse    time.Time `json:"last_use"`
	HoursSince int       `json:"hours_since"`
	DaysSince  int       `json:"days_since"`
	Risk       RiskLevel `json:"risk"`
}
