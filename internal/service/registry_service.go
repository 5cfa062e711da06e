package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"taxengine/internal/companieshouse"

	"go.uber.org/zap"
)

var companyNumberPattern = regexp.MustCompile(`^[A-Z0-9]{2}[0-9]{6}$`)

// UpstreamError reports a non-2xx answer from the company registry.
// Handlers pass StatusCode through with a generic body.
type UpstreamError struct {
	StatusCode int
}

func (e *UpstreamError) Error() string { return "Company registry request failed" }

// Registry is the slice of the Companies House client the service needs
type Registry interface {
	Configured() bool
	Search(ctx context.Context, query string, itemsPerPage int) (*companieshouse.SearchResult, error)
	Company(ctx context.Context, number string) (*companieshouse.CompanyProfile, error)
}

type RegistryService interface {
	Search(ctx context.Context, query string) (*companieshouse.SearchResult, error)
	Company(ctx context.Context, number string) (*companieshouse.CompanyProfile, error)
}

type registryService struct {
	registry Registry
	logger   *zap.Logger
}

func NewRegistryService(registry Registry, logger *zap.Logger) RegistryService {
	return &registryService{registry: registry, logger: logger}
}

var errRegistryKey = newError(ErrUnavailable, "Server configuration error: COMPANIES_HOUSE_API_KEY is not set")

func (s *registryService) translate(err error) error {
	var upstream *companieshouse.UpstreamError
	switch {
	case errors.Is(err, companieshouse.ErrNotConfigured):
		return errRegistryKey
	case errors.As(err, &upstream):
		s.logger.Warn("companies house returned an error", zap.Int("status", upstream.StatusCode))
		return &UpstreamError{StatusCode: upstream.StatusCode}
	}
	return err
}

func (s *registryService) Search(ctx context.Context, query string) (*companieshouse.SearchResult, error) {
	if !s.registry.Configured() {
		return nil, errRegistryKey
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationError("q is required")
	}
	res, err := s.registry.Search(ctx, query, 20)
	if err != nil {
		return nil, s.translate(err)
	}
	return res, nil
}

func (s *registryService) Company(ctx context.Context, number string) (*companieshouse.CompanyProfile, error) {
	if !s.registry.Configured() {
		return nil, errRegistryKey
	}
	number = padCompanyNumber(normalizeCompanyNumber(number))
	if !companyNumberPattern.MatchString(number) {
		return nil, validationError("company number must be 8 characters, e.g. 01234567 or SC123456")
	}
	profile, err := s.registry.Company(ctx, number)
	if err != nil {
		return nil, s.translate(err)
	}
	return profile, nil
}

// padCompanyNumber restores leading zeros dropped from all-digit numbers
func padCompanyNumber(n string) string {
	if n == "" || len(n) >= 8 || strings.TrimLeft(n, "0123456789") != "" {
		return n
	}
	return strings.Repeat("0", 8-len(n)) + n
}
