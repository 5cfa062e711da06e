package service

import (
	"context"
	"fmt"
	"strings"

	"taxengine/internal/model"
	"taxengine/internal/repository"

	"github.com/gosimple/slug"
)

type TemplateRequest struct {
	Name    string `json:"name" binding:"required"`
	Slug    string `json:"slug"`
	Kind    string `json:"kind" binding:"omitempty,oneof=email letter engagement"`
	Subject string `json:"subject"`
	Body    string `json:"body" binding:"required"`
}

type UpdateTemplateRequest struct {
	Name    *string `json:"name"`
	Slug    *string `json:"slug"`
	Kind    *string `json:"kind" binding:"omitempty,oneof=email letter engagement"`
	Subject *string `json:"subject"`
	Body    *string `json:"body"`
}

type TemplateService interface {
	ListTemplates(ctx context.Context, kind string) ([]model.Template, error)
	GetTemplate(ctx context.Context, id string) (*model.Template, error)
	CreateTemplate(ctx context.Context, actor *model.TaxEngineUser, req TemplateRequest) (*model.Template, error)
	UpdateTemplate(ctx context.Context, actor *model.TaxEngineUser, id string, req UpdateTemplateRequest) (*model.Template, error)
	DeleteTemplate(ctx context.Context, actor *model.TaxEngineUser, id string) error
}

type templateService struct {
	repo  repository.TemplateRepository
	audit *AuditRecorder
}

func NewTemplateService(repo repository.TemplateRepository, audit *AuditRecorder) TemplateService {
	return &templateService{repo: repo, audit: audit}
}

func validKind(kind string) bool {
	switch kind {
	case model.TemplateEmail, model.TemplateLetter, model.TemplateEngagement:
		return true
	}
	return false
}

func (s *templateService) ListTemplates(ctx context.Context, kind string) ([]model.Template, error) {
	if kind != "" && !validKind(kind) {
		return nil, validationError("unknown template kind %q", kind)
	}
	tpls, err := s.repo.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	if tpls == nil {
		tpls = []model.Template{}
	}
	return tpls, nil
}

func (s *templateService) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	uid, err := parseUUID("uuid", id)
	if err != nil {
		return nil, err
	}
	tpl, err := s.repo.GetByUUID(ctx, uid)
	if err != nil {
		return nil, lookupErr("Template", err)
	}
	return tpl, nil
}

// uniqueSlug derives a slug from source and suffixes -2, -3... until it is free.
// An explicitly requested slug that is taken is a conflict instead.
func (s *templateService) uniqueSlug(ctx context.Context, source string, explicit bool, excludeID uint) (string, error) {
	base := slug.Make(source)
	if base == "" {
		return "", validationError("slug cannot be derived from %q", source)
	}
	candidate := base
	for n := 2; ; n++ {
		taken, err := s.repo.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		if explicit {
			return "", conflict("Template slug %s is already in use", candidate)
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

func (s *templateService) CreateTemplate(ctx context.Context, actor *model.TaxEngineUser, req TemplateRequest) (*model.Template, error) {
	name := strings.TrimSpace(req.Name)
	kind := req.Kind
	if kind == "" {
		kind = model.TemplateEmail
	}

	source, explicit := name, false
	if strings.TrimSpace(req.Slug) != "" {
		source, explicit = req.Slug, true
	}
	sl, err := s.uniqueSlug(ctx, source, explicit, 0)
	if err != nil {
		return nil, err
	}

	tpl := &model.Template{
		Name:    name,
		Slug:    sl,
		Kind:    kind,
		Subject: strings.TrimSpace(req.Subject),
		Body:    req.Body,
	}
	if err := s.repo.Create(ctx, tpl); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, conflict("Template slug %s is already in use", sl)
		}
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionSaveTemplate,
		Detail:   "Created template " + tpl.Slug,
		Category: model.AuditSettings,
		Actor:    actor,
	})
	return tpl, nil
}

func (s *templateService) UpdateTemplate(ctx context.Context, actor *model.TaxEngineUser, id string, req UpdateTemplateRequest) (*model.Template, error) {
	tpl, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validationError("name cannot be empty")
		}
		tpl.Name = name
	}
	if req.Kind != nil {
		if !validKind(*req.Kind) {
			return nil, validationError("unknown template kind %q", *req.Kind)
		}
		tpl.Kind = *req.Kind
	}
	if req.Subject != nil {
		tpl.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.Body != nil {
		if strings.TrimSpace(*req.Body) == "" {
			return nil, validationError("body cannot be empty")
		}
		tpl.Body = *req.Body
	}
	if req.Slug != nil && slug.Make(*req.Slug) != tpl.Slug {
		sl, err := s.uniqueSlug(ctx, *req.Slug, true, tpl.ID)
		if err != nil {
			return nil, err
		}
		tpl.Slug = sl
	}

	if err := s.repo.Update(ctx, tpl); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionSaveTemplate,
		Detail:   "Updated template " + tpl.Slug,
		Category: model.AuditSettings,
		Actor:    actor,
	})
	return tpl, nil
}

func (s *templateService) DeleteTemplate(ctx context.Context, actor *model.TaxEngineUser, id string) error {
	tpl, err := s.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, tpl.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		Action:   model.ActionDeleteTemplate,
		Detail:   "Deleted template " + tpl.Slug,
		Category: model.AuditSettings,
		Actor:    actor,
	})
	return nil
}
