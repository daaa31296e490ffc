package controllers

import (
	"context"

	"uiforge/uiforge/sources/psql/dao"
	"uiforge/uiforge/sources/psql/models"
	"uiforge/uiforge/sources/storage"
	"uiforge/uiforge/utils/apperr"
	"uiforge/uiforge/utils/types"
)

type ComponentController struct {
	components *dao.ComponentDAO
	archive    storage.ComponentArchive
}

// NewComponentController accepts a nil archive when snapshots are disabled.
func NewComponentController(components *dao.ComponentDAO, archive storage.ComponentArchive) *ComponentController {
	return &ComponentController{components: components, archive: archive}
}

func (c *ComponentController) List(ctx context.Context, userID int, category string, p types.ListParams) (*types.Page[models.Component], error) {
	p = p.Normalize()
	items, total, err := c.components.ListForUser(ctx, userID, category, p)
	if err != nil {
		return nil, err
	}
	return &types.Page[models.Component]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

func (c *ComponentController) Get(ctx context.Context, userID int, rawID string) (*models.Component, error) {
	id, err := parseID("id", rawID)
	if err != nil {
		return nil, err
	}
	comp, err := c.components.GetForUser(ctx, id, userID)
	return comp, translate(err, "component", rawID)
}

// Versions lists the component and its ancestors, newest first.
func (c *ComponentController) Versions(ctx context.Context, userID int, rawID string) ([]models.Component, error) {
	id, err := parseID("id", rawID)
	if err != nil {
		return nil, err
	}
	out, err := c.components.Versions(ctx, id, userID)
	return out, translate(err, "component", rawID)
}

// Snapshot reads the archived copy of a component version.
func (c *ComponentController) Snapshot(ctx context.Context, userID int, rawID string) (*storage.Snapshot, error) {
	comp, err := c.Get(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	if c.archive == nil || comp.SnapshotKey == "" {
		return nil, apperr.NotFound("snapshot", rawID)
	}
	snap, err := c.archive.GetSnapshot(ctx, comp.SnapshotKey)
	if err != nil {
		return nil, err
	}
	return snap, nil
}
