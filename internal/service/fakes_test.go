package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"taxengine/internal/cache"
	"taxengine/internal/model"
	"taxengine/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type fakeTx struct{ calls int }

func (f *fakeTx) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	f.calls++
	return fn(ctx)
}

// --- clients ---

type fakeClientRepo struct {
	mu     sync.Mutex
	rows   []model.ClientCompany
	nextID uint
}

func (r *fakeClientRepo) Create(_ context.Context, c *model.ClientCompany) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.CompanyNumber == c.CompanyNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	r.nextID++
	c.ID = r.nextID
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	c.CreatedAt, c.UpdatedAt = testNow, testNow
	r.rows = append(r.rows, *c)
	return nil
}

func (r *fakeClientRepo) find(match func(model.ClientCompany) bool) (*model.ClientCompany, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if match(row) {
			c := row
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeClientRepo) GetByUUID(_ context.Context, id uuid.UUID) (*model.ClientCompany, error) {
	return r.find(func(c model.ClientCompany) bool { return c.UUID == id })
}

func (r *fakeClientRepo) GetByCompanyNumber(_ context.Context, n string) (*model.ClientCompany, error) {
	return r.find(func(c model.ClientCompany) bool { return c.CompanyNumber == n })
}

func (r *fakeClientRepo) List(_ context.Context, f repository.ClientFilter) ([]model.ClientCompany, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ClientCompany
	for _, c := range r.rows {
		if !f.IncludeInactive && !c.IsActive {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeClientRepo) ListWithYearEnd(_ context.Context) ([]model.ClientCompany, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ClientCompany
	for _, c := range r.rows {
		if c.IsActive && c.HasYearEnd() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeClientRepo) Update(_ context.Context, c *model.ClientCompany) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == c.ID {
			r.rows[i] = *c
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// --- periods ---

type fakePeriodRepo struct {
	rows   []model.AccountingPeriod
	nextID uint
}

func (r *fakePeriodRepo) Create(_ context.Context, p *model.AccountingPeriod) error {
	r.nextID++
	p.ID = r.nextID
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	r.rows = append(r.rows, *p)
	return nil
}

func (r *fakePeriodRepo) CreateBatch(ctx context.Context, ps []model.AccountingPeriod) error {
	for i := range ps {
		if err := r.Create(ctx, &ps[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakePeriodRepo) GetByUUID(_ context.Context, id uuid.UUID) (*model.AccountingPeriod, error) {
	for _, p := range r.rows {
		if p.UUID == id {
			out := p
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePeriodRepo) List(_ context.Context, clientUUID *uuid.UUID) ([]model.AccountingPeriod, error) {
	var out []model.AccountingPeriod
	for _, p := range r.rows {
		if clientUUID == nil || p.ClientCompanyUUID == *clientUUID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.After(out[j].EndDate) })
	return out, nil
}

func (r *fakePeriodRepo) ListByClient(_ context.Context, clientID uint) ([]model.AccountingPeriod, error) {
	var out []model.AccountingPeriod
	for _, p := range r.rows {
		if p.ClientCompanyID == clientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePeriodRepo) ExistsWithEndDate(_ context.Context, clientID uint, end time.Time) (bool, error) {
	for _, p := range r.rows {
		if p.ClientCompanyID == clientID && p.EndDate.Equal(end) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePeriodRepo) Update(_ context.Context, p *model.AccountingPeriod) error {
	for i := range r.rows {
		if r.rows[i].ID == p.ID {
			r.rows[i] = *p
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// --- claims ---

type fakeClaimRepo struct {
	rows   []model.ClaimPack
	adjs   []model.ClaimAdjustment
	nextID uint
}

func (r *fakeClaimRepo) Create(_ context.Context, c *model.ClaimPack) error {
	for _, row := range r.rows {
		if row.AccountingPeriodID == c.AccountingPeriodID {
			return gorm.ErrDuplicatedKey
		}
	}
	r.nextID++
	c.ID = r.nextID
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	r.rows = append(r.rows, *c)
	return nil
}

func (r *fakeClaimRepo) find(match func(model.ClaimPack) bool) (*model.ClaimPack, error) {
	for _, row := range r.rows {
		if match(row) {
			c := row
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeClaimRepo) GetByUUID(_ context.Context, id uuid.UUID) (*model.ClaimPack, error) {
	return r.find(func(c model.ClaimPack) bool { return c.UUID == id })
}

func (r *fakeClaimRepo) GetByID(_ context.Context, id uint) (*model.ClaimPack, error) {
	return r.find(func(c model.ClaimPack) bool { return c.ID == id })
}

func (r *fakeClaimRepo) GetByPeriodID(_ context.Context, id uint) (*model.ClaimPack, error) {
	return r.find(func(c model.ClaimPack) bool { return c.AccountingPeriodID == id })
}

func (r *fakeClaimRepo) List(_ context.Context, f repository.ClaimFilter) ([]model.ClaimPack, error) {
	var out []model.ClaimPack
	for _, c := range r.rows {
		if f.ClientCompanyUUID != nil && c.ClientCompanyUUID != *f.ClientCompanyUUID {
			continue
		}
		if f.Stage != "" && c.CurrentStage != f.Stage {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeClaimRepo) Update(_ context.Context, c *model.ClaimPack) error {
	for i := range r.rows {
		if r.rows[i].ID == c.ID {
			r.rows[i] = *c
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeClaimRepo) CreateAdjustment(_ context.Context, a *model.ClaimAdjustment) error {
	a.ID = uint(len(r.adjs) + 1)
	a.UUID = uuid.New()
	r.adjs = append(r.adjs, *a)
	return nil
}

func (r *fakeClaimRepo) ListAdjustments(_ context.Context, claimID uint) ([]model.ClaimAdjustment, error) {
	var out []model.ClaimAdjustment
	for _, a := range r.adjs {
		if a.ClaimPackID == claimID {
			out = append(out, a)
		}
	}
	return out, nil
}

// --- submissions ---

type fakeSubmissionRepo struct {
	rows []model.Submission
}

func (r *fakeSubmissionRepo) Create(_ context.Context, s *model.Submission) error {
	s.ID = uint(len(r.rows) + 1)
	s.UUID = uuid.New()
	r.rows = append(r.rows, *s)
	return nil
}

func (r *fakeSubmissionRepo) GetByUUID(_ context.Context, id uuid.UUID) (*model.Submission, error) {
	for _, s := range r.rows {
		if s.UUID == id {
			out := s
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSubmissionRepo) List(_ context.Context, claimUUID *uuid.UUID) ([]model.Submission, error) {
	var out []model.Submission
	for _, s := range r.rows {
		if claimUUID == nil || s.ClaimPackUUID == *claimUUID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) Update(_ context.Context, s *model.Submission) error {
	for i := range r.rows {
		if r.rows[i].ID == s.ID {
			r.rows[i] = *s
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// --- audit ---

type fakeAuditRepo struct {
	rows    []model.AuditLog
	failLog error
}

func (r *fakeAuditRepo) Log(_ context.Context, e *model.AuditLog) error {
	if r.failLog != nil {
		return r.failLog
	}
	e.ID = uint(len(r.rows) + 1)
	r.rows = append(r.rows, *e)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, f repository.AuditFilter) ([]model.AuditLog, error) {
	var out []model.AuditLog
	for _, e := range r.rows {
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if f.ClientCompanyUUID != nil && (e.ClientCompanyUUID == nil || *e.ClientCompanyUUID != *f.ClientCompanyUUID) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *fakeAuditRepo) actions() []string {
	out := make([]string, 0, len(r.rows))
	for _, e := range r.rows {
		out = append(out, e.Action)
	}
	return out
}

// --- users ---

type fakeUserRepo struct {
	rows []model.TaxEngineUser
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.TaxEngineUser) error {
	for _, row := range r.rows {
		if row.Email == u.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	u.ID = uint(len(r.rows) + 1)
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	r.rows = append(r.rows, *u)
	return nil
}

func (r *fakeUserRepo) find(match func(model.TaxEngineUser) bool) (*model.TaxEngineUser, error) {
	for _, row := range r.rows {
		if match(row) {
			u := row
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByUUID(_ context.Context, id uuid.UUID) (*model.TaxEngineUser, error) {
	return r.find(func(u model.TaxEngineUser) bool { return u.UUID == id })
}

func (r *fakeUserRepo) GetByAuthUserID(_ context.Context, id uuid.UUID) (*model.TaxEngineUser, error) {
	return r.find(func(u model.TaxEngineUser) bool { return u.AuthUserID != nil && *u.AuthUserID == id })
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.TaxEngineUser, error) {
	return r.find(func(u model.TaxEngineUser) bool { return strings.EqualFold(u.Email, email) })
}

func (r *fakeUserRepo) List(_ context.Context) ([]model.TaxEngineUser, error) {
	return append([]model.TaxEngineUser(nil), r.rows...), nil
}

func (r *fakeUserRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.rows)), nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *model.TaxEngineUser) error {
	for i := range r.rows {
		if r.rows[i].ID == u.ID {
			r.rows[i] = *u
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// --- templates ---

type fakeTemplateRepo struct {
	rows []model.Template
}

func (r *fakeTemplateRepo) Create(_ context.Context, t *model.Template) error {
	t.ID = uint(len(r.rows) + 1)
	t.UUID = uuid.New()
	r.rows = append(r.rows, *t)
	return nil
}

func (r *fakeTemplateRepo) GetByUUID(_ context.Context, id uuid.UUID) (*model.Template, error) {
	for _, t := range r.rows {
		if t.UUID == id {
			out := t
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTemplateRepo) SlugExists(_ context.Context, slug string, excludeID uint) (bool, error) {
	for _, t := range r.rows {
		if t.Slug == slug && t.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTemplateRepo) List(_ context.Context, kind string) ([]model.Template, error) {
	var out []model.Template
	for _, t := range r.rows {
		if kind == "" || t.Kind == kind {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTemplateRepo) Update(_ context.Context, t *model.Template) error {
	for i := range r.rows {
		if r.rows[i].ID == t.ID {
			r.rows[i] = *t
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeTemplateRepo) Delete(_ context.Context, id uint) error {
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// --- settings ---

type fakeSettingsRepo struct {
	gateway *model.GatewayConfig
	billing *model.BillingProfile
}

func (r *fakeSettingsRepo) GetGateway(_ context.Context) (*model.GatewayConfig, error) {
	if r.gateway == nil {
		return nil, gorm.ErrRecordNotFound
	}
	out := *r.gateway
	return &out, nil
}

func (r *fakeSettingsRepo) SaveGateway(_ context.Context, cfg *model.GatewayConfig) error {
	if cfg.ID == 0 {
		cfg.ID, cfg.UUID = 1, uuid.New()
	}
	out := *cfg
	r.gateway = &out
	return nil
}

func (r *fakeSettingsRepo) DeleteGateway(_ context.Context) error {
	r.gateway = nil
	return nil
}

func (r *fakeSettingsRepo) GetBilling(_ context.Context) (*model.BillingProfile, error) {
	if r.billing == nil {
		return nil, gorm.ErrRecordNotFound
	}
	out := *r.billing
	return &out, nil
}

func (r *fakeSettingsRepo) SaveBilling(_ context.Context, p *model.BillingProfile) error {
	if p.ID == 0 {
		p.ID, p.UUID = 1, uuid.New()
	}
	out := *p
	r.billing = &out
	return nil
}

// --- jobs ---

type fakeJobRepo struct {
	rows []model.ProcessingJob
}

func (r *fakeJobRepo) Create(_ context.Context, j *model.ProcessingJob) error {
	j.ID = uint(len(r.rows) + 1)
	j.UUID = uuid.New()
	r.rows = append(r.rows, *j)
	return nil
}

func (r *fakeJobRepo) GetByUUID(_ context.Context, id uuid.UUID) (*model.ProcessingJob, error) {
	for _, j := range r.rows {
		if j.UUID == id {
			out := j
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeJobRepo) ListQueued(_ context.Context, limit int) ([]model.ProcessingJob, error) {
	var out []model.ProcessingJob
	for _, j := range r.rows {
		if j.Status == model.JobQueued && len(out) < limit {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) Claim(_ context.Context, j *model.ProcessingJob, at time.Time) (bool, error) {
	for i := range r.rows {
		if r.rows[i].ID == j.ID {
			if r.rows[i].Status != model.JobQueued {
				return false, nil
			}
			r.rows[i].Status = model.JobRunning
			r.rows[i].StartedAt = &at
			r.rows[i].UpdatedAt = at
			j.Status, j.StartedAt, j.UpdatedAt = model.JobRunning, &at, at
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeJobRepo) HasActive(_ context.Context, claimID uint, kind string) (bool, error) {
	for _, j := range r.rows {
		if j.ClaimPackID == claimID && j.Kind == kind && !j.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeJobRepo) ListStale(_ context.Context, cutoff time.Time, limit int) ([]model.ProcessingJob, error) {
	var out []model.ProcessingJob
	for _, j := range r.rows {
		if j.Status == model.JobRunning && j.UpdatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) Update(_ context.Context, j *model.ProcessingJob) error {
	for i := range r.rows {
		if r.rows[i].ID == j.ID {
			r.rows[i] = *j
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// --- notifications ---

type fakeNotificationRepo struct {
	rows []model.Notification
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	n.ID = uint(len(r.rows) + 1)
	n.UUID = uuid.New()
	r.rows = append(r.rows, *n)
	return nil
}

func (r *fakeNotificationRepo) GetByUUID(_ context.Context, id uuid.UUID) (*model.Notification, error) {
	for _, n := range r.rows {
		if n.UUID == id {
			out := n
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeNotificationRepo) ListFor(_ context.Context, recipientID uint, unreadOnly bool, limit int) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range r.rows {
		if n.RecipientID != nil && *n.RecipientID != recipientID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id uint) error {
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows[i].IsRead = true
		}
	}
	return nil
}

// --- collaborators ---

type fakeDirectory struct {
	invalidations int
}

func (d *fakeDirectory) Get(context.Context) ([]cache.ClientSummary, error) {
	return []cache.ClientSummary{}, nil
}

func (d *fakeDirectory) Invalidate(context.Context) { d.invalidations++ }

type publishedEvent struct {
	recipient *uuid.UUID
	eventType string
}

type fakePublisher struct {
	events []publishedEvent
}

func (p *fakePublisher) Publish(recipient *uuid.UUID, eventType string, _ interface{}) {
	p.events = append(p.events, publishedEvent{recipient: recipient, eventType: eventType})
}

func newTestRecorder(repo repository.AuditRepository) *AuditRecorder {
	r := NewAuditRecorder(repo, zap.NewNop())
	r.now = fixedClock
	return r
}

func intPtr(n int) *int { return &n }

func testAdmin() *model.TaxEngineUser {
	auth := uuid.New()
	return &model.TaxEngineUser{
		ID:         99,
		UUID:       uuid.New(),
		AuthUserID: &auth,
		Email:      "admin@example.com",
		FullName:   "Ada Admin",
		Role:       model.RoleAdministrator,
		Status:     model.UserStatusActive,
	}
}
