package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taxengine/internal/cache"
	"taxengine/internal/model"
	"taxengine/internal/period"
	"taxengine/internal/repository"

	"go.uber.org/zap"
)

// ClientRequest is the create payload and one row of a bulk import
type ClientRequest struct {
	Name          string `json:"name" binding:"required"`
	CompanyNumber string `json:"companyNumber" binding:"required"`
	UTR           string `json:"utr"`
	PAYEReference string `json:"payeReference"`
	ContactName   string `json:"contactName"`
	ContactEmail  string `json:"contactEmail" binding:"omitempty,email"`
	ContactPhone  string `json:"contactPhone"`
	Address       string `json:"address"`
	YearEndMonth  *int   `json:"yearEndMonth" binding:"omitempty,min=1,max=12"`
	YearEndDay    *int   `json:"yearEndDay" binding:"omitempty,min=1,max=31"`

	// Line is the CSV line the row was read from, zero for JSON rows
	Line int `json:"-"`
}

// UpdateClientRequest is a partial update. Nil fields are left unchanged.
type UpdateClientRequest struct {
	Name          *string `json:"name"`
	UTR           *string `json:"utr"`
	PAYEReference *string `json:"payeReference"`
	ContactName   *string `json:"contactName"`
	ContactEmail  *string `json:"contactEmail"`
	ContactPhone  *string `json:"contactPhone"`
	Address       *string `json:"address"`
	YearEndMonth  *int    `json:"yearEndMonth"`
	YearEndDay    *int    `json:"yearEndDay"`
	IsActive      *bool   `json:"isActive"`
}

// ClientWithPeriods is a created client and the periods generated for it
type ClientWithPeriods struct {
	Client  *model.ClientCompany     `json:"client"`
	Periods []model.AccountingPeriod `json:"accountingPeriods"`
}

// ImportError describes one row skipped by a bulk import. Row is 1-based.
type ImportError struct {
	Row           int    `json:"row"`
	CompanyNumber string `json:"companyNumber"`
	Error         string `json:"error"`
}

// ImportResult summarises a bulk import
type ImportResult struct {
	Created int           `json:"created"`
	Skipped int           `json:"skipped"`
	Errors  []ImportError `json:"errors"`
}

// ClientDirectory is the read-through cache the service keeps fresh
type ClientDirectory interface {
	Get(ctx context.Context) ([]cache.ClientSummary, error)
	Invalidate(ctx context.Context)
}

type ClientService interface {
	ListClients(ctx context.Context, search string, includeInactive bool) ([]model.ClientCompany, error)
	Directory(ctx context.Context) ([]cache.ClientSummary, error)
	GetClient(ctx context.Context, id string) (*model.ClientCompany, error)
	CreateClient(ctx context.Context, actor *model.TaxEngineUser, req ClientRequest) (*ClientWithPeriods, error)
	UpdateClient(ctx context.Context, actor *model.TaxEngineUser, id string, req UpdateClientRequest) (*model.ClientCompany, error)
	BulkImport(ctx context.Context, actor *model.TaxEngineUser, rows []ClientRequest) (*ImportResult, error)
}

type clientService struct {
	clients   repository.ClientRepository
	periods   repository.PeriodRepository
	txManager repository.TransactionManager
	audit     *AuditRecorder
	directory ClientDirectory
	logger    *zap.Logger
	now       func() time.Time
}

func NewClientService(
	clients repository.ClientRepository,
	periods repository.PeriodRepository,
	txManager repository.TransactionManager,
	audit *AuditRecorder,
	directory ClientDirectory,
	logger *zap.Logger,
) ClientService {
	return &clientService{
		clients:   clients,
		periods:   periods,
		txManager: txManager,
		audit:     audit,
		directory: directory,
		logger:    logger,
		now:       time.Now,
	}
}

// ClientDirectoryLoader reads active clients for the directory cache
func ClientDirectoryLoader(clients repository.ClientRepository) cache.Loader {
	return func(ctx context.Context) ([]cache.ClientSummary, error) {
		rows, err := clients.List(ctx, repository.ClientFilter{})
		if err != nil {
			return nil, err
		}
		out := make([]cache.ClientSummary, 0, len(rows))
		for _, c := range rows {
			out = append(out, cache.ClientSummary{
				UUID:          c.UUID.String(),
				Name:          c.Name,
				CompanyNumber: c.CompanyNumber,
				YearEndMonth:  c.YearEndMonth,
				YearEndDay:    c.YearEndDay,
			})
		}
		return out, nil
	}
}

func (s *clientService) ListClients(ctx context.Context, search string, includeInactive bool) ([]model.ClientCompany, error) {
	clients, err := s.clients.List(ctx, repository.ClientFilter{Search: search, IncludeInactive: includeInactive})
	if err != nil {
		return nil, err
	}
	if clients == nil {
		clients = []model.ClientCompany{}
	}
	return clients, nil
}

func (s *clientService) Directory(ctx context.Context) ([]cache.ClientSummary, error) {
	return s.directory.Get(ctx)
}

func (s *clientService) GetClient(ctx context.Context, id string) (*model.ClientCompany, error) {
	uid, err := parseUUID("uuid", id)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.GetByUUID(ctx, uid)
	if err != nil {
		return nil, lookupErr("Client", err)
	}
	return client, nil
}

func normalizeCompanyNumber(n string) string {
	return strings.ToUpper(strings.TrimSpace(n))
}

func validateYearEnd(month, day *int) error {
	if (month == nil) != (day == nil) {
		return validationError("yearEndMonth and yearEndDay must be provided together")
	}
	if month != nil && !period.ValidYearEnd(*month, *day) {
		return validationError("year end %d/%d is not a valid date", *day, *month)
	}
	return nil
}

// validate applies the binding rules to rows that bypass gin, plus the
// cross-field year-end check no tag can express
func (req ClientRequest) validate() error {
	if err := validateRow(req); err != nil {
		return err
	}
	return validateYearEnd(req.YearEndMonth, req.YearEndDay)
}

func (req ClientRequest) toModel(actor *model.TaxEngineUser) *model.ClientCompany {
	c := &model.ClientCompany{
		Name:          strings.TrimSpace(req.Name),
		CompanyNumber: normalizeCompanyNumber(req.CompanyNumber),
		UTR:           strings.TrimSpace(req.UTR),
		PAYEReference: strings.TrimSpace(req.PAYEReference),
		ContactName:   strings.TrimSpace(req.ContactName),
		ContactEmail:  strings.TrimSpace(req.ContactEmail),
		ContactPhone:  strings.TrimSpace(req.ContactPhone),
		Address:       strings.TrimSpace(req.Address),
		YearEndMonth:  req.YearEndMonth,
		YearEndDay:    req.YearEndDay,
		IsActive:      true,
	}
	c.CreatedByID, c.CreatedByUUID = actorRefs(actor)
	return c
}

// periodsFor builds the generated periods for a freshly inserted client
func periodsFor(client *model.ClientCompany, now time.Time) []model.AccountingPeriod {
	if !client.HasYearEnd() {
		return nil
	}
	ranges := period.Generate(*client.YearEndMonth, *client.YearEndDay, now)
	out := make([]model.AccountingPeriod, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, model.AccountingPeriod{
			ClientCompanyID:   client.ID,
			ClientCompanyUUID: client.UUID,
			StartDate:         r.Start,
			EndDate:           r.End,
			Status:            model.PeriodNotStarted,
		})
	}
	return out
}

// insertClient writes the client and its generated periods in one transaction
func (s *clientService) insertClient(ctx context.Context, client *model.ClientCompany) ([]model.AccountingPeriod, error) {
	var generated []model.AccountingPeriod
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.clients.Create(txCtx, client); err != nil {
			return err
		}
		generated = periodsFor(client, s.now())
		return s.periods.CreateBatch(txCtx, generated)
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, conflict("A client with company number %s already exists", client.CompanyNumber)
		}
		return nil, err
	}
	if generated == nil {
		generated = []model.AccountingPeriod{}
	}
	return generated, nil
}

func (s *clientService) checkDuplicate(ctx context.Context, number string) error {
	_, err := s.clients.GetByCompanyNumber(ctx, number)
	switch {
	case err == nil:
		return conflict("A client with company number %s already exists", number)
	case repository.IsNotFound(err):
		return nil
	default:
		return err
	}
}

func (s *clientService) CreateClient(ctx context.Context, actor *model.TaxEngineUser, req ClientRequest) (*ClientWithPeriods, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	client := req.toModel(actor)
	if err := s.checkDuplicate(ctx, client.CompanyNumber); err != nil {
		return nil, err
	}

	generated, err := s.insertClient(ctx, client)
	if err != nil {
		return nil, err
	}
	s.directory.Invalidate(ctx)

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionCreateClient,
		Detail:   fmt.Sprintf("Created client %s (%s) with %d accounting periods", client.Name, client.CompanyNumber, len(generated)),
		Category: model.AuditClient,
		Actor:    actor,
		Client:   client,
	})

	return &ClientWithPeriods{Client: client, Periods: generated}, nil
}

func (s *clientService) UpdateClient(ctx context.Context, actor *model.TaxEngineUser, id string, req UpdateClientRequest) (*model.ClientCompany, error) {
	client, err := s.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validationError("name cannot be empty")
		}
		client.Name = name
	}
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setString(&client.UTR, req.UTR)
	setString(&client.PAYEReference, req.PAYEReference)
	setString(&client.ContactName, req.ContactName)
	setString(&client.ContactEmail, req.ContactEmail)
	setString(&client.ContactPhone, req.ContactPhone)
	setString(&client.Address, req.Address)

	if req.YearEndMonth != nil || req.YearEndDay != nil {
		month, day := client.YearEndMonth, client.YearEndDay
		if req.YearEndMonth != nil {
			month = req.YearEndMonth
		}
		if req.YearEndDay != nil {
			day = req.YearEndDay
		}
		if err := validateYearEnd(month, day); err != nil {
			return nil, err
		}
		client.YearEndMonth, client.YearEndDay = month, day
	}
	if req.IsActive != nil {
		client.IsActive = *req.IsActive
	}

	// always bumped, even when no field was recognised
	client.UpdatedAt = s.now()
	if err := s.clients.Update(ctx, client); err != nil {
		return nil, err
	}
	s.directory.Invalidate(ctx)

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionUpdateClient,
		Detail:   fmt.Sprintf("Updated client %s (%s)", client.Name, client.CompanyNumber),
		Category: model.AuditClient,
		Actor:    actor,
		Client:   client,
	})
	return client, nil
}

// BulkImport creates every valid row whose company number is not already
// taken. Duplicate and invalid rows are skipped and listed in Errors.
func (s *clientService) BulkImport(ctx context.Context, actor *model.TaxEngineUser, rows []ClientRequest) (*ImportResult, error) {
	if len(rows) == 0 {
		return nil, validationError("clients must contain at least one row")
	}

	result := &ImportResult{Errors: []ImportError{}}
	seen := make(map[string]bool, len(rows))
	skip := func(row int, number string, err error) {
		result.Skipped++
		result.Errors = append(result.Errors, ImportError{Row: row, CompanyNumber: number, Error: err.Error()})
	}

	for i, req := range rows {
		row := i + 1
		if req.Line > 0 {
			row = req.Line
		}
		number := normalizeCompanyNumber(req.CompanyNumber)

		if err := req.validate(); err != nil {
			skip(row, number, err)
			continue
		}
		if seen[number] {
			skip(row, number, conflict("Duplicate company number %s in import", number))
			continue
		}
		seen[number] = true

		if err := s.checkDuplicate(ctx, number); err != nil {
			if !isKind(err, ErrConflict) {
				return nil, err
			}
			skip(row, number, err)
			continue
		}

		client := req.toModel(actor)
		if _, err := s.insertClient(ctx, client); err != nil {
			if !isKind(err, ErrConflict) {
				return nil, err
			}
			skip(row, number, err)
			continue
		}
		result.Created++
	}

	if result.Created > 0 {
		s.directory.Invalidate(ctx)
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionImportClients,
		Detail:   fmt.Sprintf("Imported %d clients, skipped %d", result.Created, result.Skipped),
		Category: model.AuditClient,
		Actor:    actor,
	})
	return result, nil
}
