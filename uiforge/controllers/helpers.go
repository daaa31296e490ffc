package controllers

import (
	"errors"
	"strings"

	"uiforge/uiforge/sources/psql/dao"
	"uiforge/uiforge/sources/psql/models"
	"uiforge/uiforge/utils/apperr"
	"uiforge/uiforge/utils/types"

	"github.com/google/uuid"
)

const (
	maxMessageLength = 2000
	maxTitleLength   = 100
)

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperr.Validation(field, "must be a valid id")
	}
	return id, nil
}

// translate maps storage errors onto request-level ones.
func translate(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dao.ErrNotFound):
		return apperr.NotFound(resource, id)
	case errors.Is(err, dao.ErrInvalidTransition):
		return apperr.Conflict("%s %s cannot change state now", resource, id)
	case errors.Is(err, models.ErrEmptyUserMessage),
		errors.Is(err, models.ErrEmptyAssistantMessage),
		errors.Is(err, models.ErrInvalidRole):
		return apperr.Validation("message", "%s", err.Error())
	}
	return err
}

func toModelImages(in []types.Image) []models.Image {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.Image, 0, len(in))
	for _, img := range in {
		out = append(out, models.Image{URL: img.URL, Alt: img.Alt, MimeType: img.MimeType})
	}
	return out
}
