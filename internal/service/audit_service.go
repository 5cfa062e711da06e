package service

import (
	"context"
	"time"

	"taxengine/internal/model"
	"taxengine/internal/repository"

	"go.uber.org/zap"
)

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 500
)

// AuditEntry is one event to record. Actor, Client and Claim are optional.
type AuditEntry struct {
	Action   string
	Detail   string
	Category model.AuditCategory
	Actor    *model.TaxEngineUser
	Client   *model.ClientCompany
	Claim    *model.ClaimPack
}

// AuditRecorder writes audit rows best-effort: a failed write is logged and dropped
type AuditRecorder struct {
	repo   repository.AuditRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewAuditRecorder(repo repository.AuditRepository, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{repo: repo, logger: logger, now: time.Now}
}

func (r *AuditRecorder) Record(ctx context.Context, e AuditEntry) {
	entry := model.AuditLog{
		Action:    e.Action,
		Detail:    e.Detail,
		Category:  e.Category,
		Timestamp: r.now().UTC(),
	}
	entry.ActorID, entry.ActorUUID = actorRefs(e.Actor)
	if e.Client != nil {
		id, uid := e.Client.ID, e.Client.UUID
		entry.ClientCompanyID, entry.ClientCompanyUUID = &id, &uid
	}
	if e.Claim != nil {
		id, uid := e.Claim.ID, e.Claim.UUID
		entry.ClaimPackID, entry.ClaimPackUUID = &id, &uid
		if e.Client == nil && e.Claim.ClientCompanyID != 0 {
			cid, cuid := e.Claim.ClientCompanyID, e.Claim.ClientCompanyUUID
			entry.ClientCompanyID, entry.ClientCompanyUUID = &cid, &cuid
		}
	}

	if err := r.repo.Log(ctx, &entry); err != nil {
		r.logger.Warn("audit log write failed",
			zap.String("action", e.Action),
			zap.String("category", string(e.Category)),
			zap.Error(err),
		)
	}
}

// AuditQuery is the raw filter taken from the query string
type AuditQuery struct {
	Limit             int
	Category          string
	ClientCompanyUUID string
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, q AuditQuery) ([]model.AuditLog, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs returns the newest rows first. Limit defaults to 50 and is capped at 500.
func (s *auditService) GetAuditLogs(ctx context.Context, q AuditQuery) ([]model.AuditLog, error) {
	filter := repository.AuditFilter{Limit: q.Limit}
	if filter.Limit <= 0 {
		filter.Limit = DefaultAuditLimit
	}
	if filter.Limit > MaxAuditLimit {
		filter.Limit = MaxAuditLimit
	}

	if q.Category != "" {
		cat := model.AuditCategory(q.Category)
		if !cat.Valid() {
			return nil, validationError("unknown audit category %q", q.Category)
		}
		filter.Category = cat
	}

	clientID, err := optionalUUID("clientCompanyUuid", q.ClientCompanyUUID)
	if err != nil {
		return nil, err
	}
	filter.ClientCompanyUUID = clientID

	logs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []model.AuditLog{}
	}
	return logs, nil
}
