package service

import (
	"context"
	"time"

	"taxengine/internal/model"
	"taxengine/internal/repository"
)

const (
	upcomingWindowDays = 90
	upcomingLimit      = 10
)

type StatisticsService interface {
	GetDashboard(ctx context.Context) (*model.DashboardStats, error)
}

type statisticsService struct {
	repo repository.StatisticsRepository
	now  func() time.Time
}

func NewStatisticsService(repo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{repo: repo, now: time.Now}
}

// withAllKeys returns counts with a zero entry for every key that has no rows
func withAllKeys(counts map[string]int64, keys []string) map[string]int64 {
	out := make(map[string]int64, len(keys))
	for _, k := range keys {
		out[k] = counts[k]
	}
	return out
}

func (s *statisticsService) GetDashboard(ctx context.Context) (*model.DashboardStats, error) {
	active, inactive, err := s.repo.CountClients(ctx)
	if err != nil {
		return nil, err
	}

	periods, err := s.repo.CountGrouped(ctx, "accounting_periods", "status")
	if err != nil {
		return nil, err
	}
	claims, err := s.repo.CountGrouped(ctx, "claim_packs", "current_stage")
	if err != nil {
		return nil, err
	}
	subs, err := s.repo.CountGrouped(ctx, "submissions", "status")
	if err != nil {
		return nil, err
	}

	today := s.now().UTC()
	upcoming, err := s.repo.UpcomingPeriodEnds(ctx, today, today.AddDate(0, 0, upcomingWindowDays), upcomingLimit)
	if err != nil {
		return nil, err
	}
	if upcoming == nil {
		upcoming = []model.UpcomingPeriod{}
	}

	periodKeys := make([]string, 0, 6)
	for _, st := range model.PeriodStatuses() {
		periodKeys = append(periodKeys, string(st))
	}
	stageKeys := make([]string, 0, 5)
	for _, st := range model.ClaimStages() {
		stageKeys = append(stageKeys, string(st))
	}

	return &model.DashboardStats{
		ActiveClients:       active,
		InactiveClients:     inactive,
		PeriodsByStatus:     withAllKeys(periods, periodKeys),
		ClaimsByStage:       withAllKeys(claims, stageKeys),
		SubmissionsByStatus: withAllKeys(subs, []string{model.SubmissionDraft, model.SubmissionSubmitted, model.SubmissionAccepted, model.SubmissionRejected}),
		UpcomingYearEnds:    upcoming,
	}, nil
}
