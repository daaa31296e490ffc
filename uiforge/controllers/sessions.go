package controllers

import (
	"context"
	"strings"

	"uiforge/uiforge/sources/psql/dao"
	"uiforge/uiforge/sources/psql/models"
	"uiforge/uiforge/utils/apperr"
	"uiforge/uiforge/utils/types"

	"gorm.io/datatypes"
)

type SessionController struct {
	sessions *dao.SessionDAO
	messages *dao.MessageDAO
}

func NewSessionController(sessions *dao.SessionDAO, messages *dao.MessageDAO) *SessionController {
	return &SessionController{sessions: sessions, messages: messages}
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return apperr.Validation("title", "is required")
	}
	if len(title) > maxTitleLength {
		return apperr.Validation("title", "must be at most %d characters", maxTitleLength)
	}
	return nil
}

func (c *SessionController) Create(ctx context.Context, userID int, req types.CreateSessionRequest) (*models.Session, error) {
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}
	if len(req.Description) > 500 {
		return nil, apperr.Validation("description", "must be at most 500 characters")
	}
	s := &models.Session{
		UserID:      userID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		AIModel:     req.AIModel,
		Tags:        req.Tags,
		IsPublic:    req.IsPublic,
		AutoSave:    true,
	}
	if err := c.sessions.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *SessionController) List(ctx context.Context, userID int, p types.ListParams) (*types.Page[models.Session], error) {
	p = p.Normalize()
	items, total, err := c.sessions.List(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	return &types.Page[models.Session]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

func (c *SessionController) Recent(ctx context.Context, userID, limit int) ([]models.Session, error) {
	return c.sessions.Recent(ctx, userID, limit)
}

// Get also marks the session as active now.
func (c *SessionController) Get(ctx context.Context, userID int, rawID string) (*models.Session, error) {
	id, err := parseID("id", rawID)
	if err != nil {
		return nil, err
	}
	s, err := c.sessions.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, translate(err, "session", rawID)
	}
	if err := c.sessions.Touch(ctx, id); err != nil {
		return nil, err
	}
	return s, nil
}

// Update applies a partial update. An explicit currentComponent replaces the
// stored code as given.
func (c *SessionController) Update(ctx context.Context, userID int, rawID string, req types.UpdateSessionRequest) (*models.Session, error) {
	id, err := parseID("id", rawID)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if req.Title != nil {
		if err := validateTitle(*req.Title); err != nil {
			return nil, err
		}
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Tags != nil {
		fields["tags"] = datatypes.JSONSlice[string](req.Tags)
	}
	if req.IsPublic != nil {
		fields["is_public"] = *req.IsPublic
	}
	if req.AIModel != nil {
		fields["ai_model"] = *req.AIModel
	}
	if req.AutoSave != nil {
		fields["auto_save"] = *req.AutoSave
	}
	if req.Theme != nil {
		if *req.Theme != models.ThemeLight && *req.Theme != models.ThemeDark {
			return nil, apperr.Validation("theme", "must be light or dark")
		}
		fields["theme"] = *req.Theme
	}
	if cc := req.CurrentComponent; cc != nil {
		fields["current_jsx"] = cc.JSX
		fields["current_css"] = cc.CSS
		fields["current_props"] = datatypes.JSONMap(cc.Props)
	}
	if len(fields) > 0 {
		if err := c.sessions.Update(ctx, id, userID, fields); err != nil {
			return nil, translate(err, "session", rawID)
		}
	}
	s, err := c.sessions.GetForUser(ctx, id, userID)
	return s, translate(err, "session", rawID)
}

func (c *SessionController) Delete(ctx context.Context, userID int, rawID string) error {
	id, err := parseID("id", rawID)
	if err != nil {
		return err
	}
	return translate(c.sessions.SoftDelete(ctx, id, userID), "session", rawID)
}

func (c *SessionController) Messages(ctx context.Context, userID int, rawID string, p types.ListParams) (*types.Page[models.Message], error) {
	id, err := parseID("id", rawID)
	if err != nil {
		return nil, err
	}
	if _, err := c.sessions.GetForUser(ctx, id, userID); err != nil {
		return nil, translate(err, "session", rawID)
	}
	p = p.Normalize()
	items, total, err := c.messages.ListForSession(ctx, id, p)
	if err != nil {
		return nil, err
	}
	return &types.Page[models.Message]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

func (c *SessionController) Duplicate(ctx context.Context, userID int, rawID string) (*models.Session, error) {
	id, err := parseID("id", rawID)
	if err != nil {
		return nil, err
	}
	src, err := c.sessions.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, translate(err, "session", rawID)
	}
	return c.sessions.Duplicate(ctx, src)
}
