package model

// DashboardStats aggregates workspace counters for the dashboard
type DashboardStats struct {
	ActiveClients       int64            `json:"activeClients"`
	InactiveClients     int64            `json:"inactiveClients"`
	PeriodsByStatus     map[string]int64 `json:"periodsByStatus"`
	ClaimsByStage       map[string]int64 `json:"claimsByStage"`
	SubmissionsByStatus map[string]int64 `json:"submissionsByStatus"`
	UpcomingYearEnds    []UpcomingPeriod `json:"upcomingPeriodEnds"`
}

// UpcomingPeriod is a period ending soon that has not been submitted
type UpcomingPeriod struct {
	PeriodUUID        string `json:"periodUuid"`
	ClientCompanyUUID string `json:"clientCompanyUuid"`
	ClientName        string `json:"clientName"`
	EndDate           string `json:"endDate"`
	Status            string `json:"status"`
}
