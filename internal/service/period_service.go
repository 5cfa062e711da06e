package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taxengine/internal/model"
	"taxengine/internal/period"
	"taxengine/internal/repository"

	"go.uber.org/zap"
)

type CreatePeriodRequest struct {
	ClientCompanyUUID string `json:"clientCompanyUuid" binding:"required,uuid"`
	StartDate         string `json:"startDate" binding:"required,datetime=2006-01-02"`
	EndDate           string `json:"endDate" binding:"required,datetime=2006-01-02"`
	Status            string `json:"status" binding:"omitempty,oneof=not_started in_progress proofing signed issued submitted"`
}

type PeriodService interface {
	ListPeriods(ctx context.Context, clientCompanyUUID string) ([]model.AccountingPeriod, error)
	CreatePeriod(ctx context.Context, actor *model.TaxEngineUser, req CreatePeriodRequest) (*model.AccountingPeriod, error)
	UpdateStatus(ctx context.Context, actor *model.TaxEngineUser, id, status string) (*model.AccountingPeriod, error)
	GeneratePeriods(ctx context.Context, actor *model.TaxEngineUser, clientUUID string) ([]model.AccountingPeriod, error)
	// Rollover inserts the upcoming period for every active client with a
	// year-end that does not have it yet. It returns the number inserted.
	Rollover(ctx context.Context) (int, error)
}

type periodService struct {
	clients repository.ClientRepository
	periods repository.PeriodRepository
	audit   *AuditRecorder
	logger  *zap.Logger
	now     func() time.Time
}

func NewPeriodService(clients repository.ClientRepository, periods repository.PeriodRepository, audit *AuditRecorder, logger *zap.Logger) PeriodService {
	return &periodService{clients: clients, periods: periods, audit: audit, logger: logger, now: time.Now}
}

func (s *periodService) ListPeriods(ctx context.Context, clientCompanyUUID string) ([]model.AccountingPeriod, error) {
	clientID, err := optionalUUID("clientCompanyUuid", clientCompanyUUID)
	if err != nil {
		return nil, err
	}
	periods, err := s.periods.List(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if periods == nil {
		periods = []model.AccountingPeriod{}
	}
	return periods, nil
}

func (s *periodService) loadClient(ctx context.Context, raw string) (*model.ClientCompany, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, validationError("clientCompanyUuid is required")
	}
	id, err := parseUUID("clientCompanyUuid", raw)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.GetByUUID(ctx, id)
	if err != nil {
		return nil, lookupErr("Client", err)
	}
	return client, nil
}

func overlapping(existing []model.AccountingPeriod, r period.Range) *model.AccountingPeriod {
	for i := range existing {
		p := &existing[i]
		if r.Overlaps(period.Range{Start: p.StartDate, End: p.EndDate}) {
			return p
		}
	}
	return nil
}

func (s *periodService) CreatePeriod(ctx context.Context, actor *model.TaxEngineUser, req CreatePeriodRequest) (*model.AccountingPeriod, error) {
	client, err := s.loadClient(ctx, req.ClientCompanyUUID)
	if err != nil {
		return nil, err
	}

	start, err := period.ParseDate(req.StartDate)
	if err != nil {
		return nil, validationError("startDate must be YYYY-MM-DD")
	}
	end, err := period.ParseDate(req.EndDate)
	if err != nil {
		return nil, validationError("endDate must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, validationError("endDate must not be before startDate")
	}

	status := model.PeriodNotStarted
	if req.Status != "" {
		status = model.PeriodStatus(req.Status)
	}

	existing, err := s.periods.ListByClient(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	if p := overlapping(existing, period.Range{Start: start, End: end}); p != nil {
		return nil, conflict("Period overlaps existing period %s to %s",
			p.StartDate.Format(period.DateLayout), p.EndDate.Format(period.DateLayout))
	}

	p := &model.AccountingPeriod{
		ClientCompanyID:   client.ID,
		ClientCompanyUUID: client.UUID,
		StartDate:         start,
		EndDate:           end,
		Status:            status,
	}
	if err := s.periods.Create(ctx, p); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionCreatePeriod,
		Detail:   fmt.Sprintf("Created accounting period %s to %s", req.StartDate, req.EndDate),
		Category: model.AuditPeriod,
		Actor:    actor,
		Client:   client,
	})
	return p, nil
}

func (s *periodService) UpdateStatus(ctx context.Context, actor *model.TaxEngineUser, id, status string) (*model.AccountingPeriod, error) {
	uid, err := parseUUID("uuid", id)
	if err != nil {
		return nil, err
	}
	next := model.PeriodStatus(status)
	if !next.Valid() {
		return nil, validationError("unknown period status %q", status)
	}

	p, err := s.periods.GetByUUID(ctx, uid)
	if err != nil {
		return nil, lookupErr("Accounting period", err)
	}
	if next.Rank() < p.Status.Rank() {
		return nil, conflict("Period status cannot move back from %s to %s", p.Status, next)
	}
	if next == p.Status {
		return p, nil
	}

	prev := p.Status
	p.Status = next
	if err := s.periods.Update(ctx, p); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionUpdatePeriodStatus,
		Detail:   fmt.Sprintf("Period %s status %s -> %s", p.EndDate.Format(period.DateLayout), prev, next),
		Category: model.AuditPeriod,
		Actor:    actor,
		Client:   &model.ClientCompany{ID: p.ClientCompanyID, UUID: p.ClientCompanyUUID},
	})
	return p, nil
}

func (s *periodService) GeneratePeriods(ctx context.Context, actor *model.TaxEngineUser, clientUUID string) ([]model.AccountingPeriod, error) {
	client, err := s.loadClient(ctx, clientUUID)
	if err != nil {
		return nil, err
	}
	if !client.HasYearEnd() {
		return nil, validationError("Client has no year end")
	}

	existing, err := s.periods.ListByClient(ctx, client.ID)
	if err != nil {
		return nil, err
	}

	created := []model.AccountingPeriod{}
	for _, p := range periodsFor(client, s.now()) {
		if overlapping(existing, period.Range{Start: p.StartDate, End: p.EndDate}) != nil {
			continue
		}
		created = append(created, p)
	}
	if err := s.periods.CreateBatch(ctx, created); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionGeneratePeriods,
		Detail:   fmt.Sprintf("Generated %d accounting periods", len(created)),
		Category: model.AuditPeriod,
		Actor:    actor,
		Client:   client,
	})
	return created, nil
}

func (s *periodService) Rollover(ctx context.Context) (int, error) {
	clients, err := s.clients.ListWithYearEnd(ctx)
	if err != nil {
		return 0, err
	}

	inserted := 0
	now := s.now()
	for i := range clients {
		client := &clients[i]
		ranges := period.Generate(*client.YearEndMonth, *client.YearEndDay, now)
		if len(ranges) == 0 {
			continue
		}
		upcoming := ranges[0]

		exists, err := s.periods.ExistsWithEndDate(ctx, client.ID, upcoming.End)
		if err != nil {
			return inserted, err
		}
		if exists {
			continue
		}
		existing, err := s.periods.ListByClient(ctx, client.ID)
		if err != nil {
			return inserted, err
		}
		if overlapping(existing, upcoming) != nil {
			s.logger.Debug("rollover skipped overlapping period", zap.String("client", client.UUID.String()))
			continue
		}

		p := model.AccountingPeriod{
			ClientCompanyID:   client.ID,
			ClientCompanyUUID: client.UUID,
			StartDate:         upcoming.Start,
			EndDate:           upcoming.End,
			Status:            model.PeriodNotStarted,
		}
		if err := s.periods.Create(ctx, &p); err != nil {
			return inserted, err
		}
		inserted++

		s.audit.Record(ctx, AuditEntry{
			Action:   model.ActionPeriodRollover,
			Detail:   fmt.Sprintf("Opened accounting period ending %s", upcoming.End.Format(period.DateLayout)),
			Category: model.AuditSystem,
			Client:   client,
		})
	}
	return inserted, nil
}
