package service

import (
	"strings"
	"time"

	"taxengine/internal/model"
	"taxengine/internal/repository"

	"github.com/google/uuid"
)

// parseUUID parses a public id taken from a path or body field
func parseUUID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, validationError("%s must be a valid UUID", field)
	}
	return id, nil
}

// optionalUUID parses raw when it is non-empty
func optionalUUID(field, raw string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseUUID(field, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// lookupErr turns a repository read error into a not-found error when the row is missing
func lookupErr(entity string, err error) error {
	if repository.IsNotFound(err) {
		return notFound(entity)
	}
	return err
}

func actorRefs(actor *model.TaxEngineUser) (*uint, *uuid.UUID) {
	if actor == nil {
		return nil, nil
	}
	id, uid := actor.ID, actor.UUID
	return &id, &uid
}

func actorName(actor *model.TaxEngineUser) string {
	if actor == nil {
		return "System"
	}
	if actor.FullName != "" {
		return actor.FullName
	}
	return actor.Email
}

func timePtr(t time.Time) *time.Time { return &t }
