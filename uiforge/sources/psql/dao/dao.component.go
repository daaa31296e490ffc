package dao

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"uiforge/uiforge/sources/psql/models"
	"uiforge/uiforge/utils/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ComponentDAO struct {
	DB *gorm.DB
}

func NewComponentDAO(db *gorm.DB) *ComponentDAO {
	return &ComponentDAO{DB: db}
}

// SaveVersion stores c as the newest version of its session's component.
// The previous latest row becomes its parent and stops being latest.
func (dao *ComponentDAO) SaveVersion(ctx context.Context, c *models.Component) error {
	return dao.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev models.Component
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ? AND is_latest = ?", c.SessionID, true).
			Order("version DESC").
			First(&prev).Error
		switch {
		case err == nil:
			c.Version = prev.Version + 1
			c.ParentID = &prev.ID
			if err := tx.Model(&models.Component{}).
				Where("session_id = ? AND is_latest = ?", c.SessionID, true).
				Update("is_latest", false).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.Version = 1
			c.ParentID = nil
		default:
			return err
		}
		c.IsLatest = true
		return tx.Create(c).Error
	})
}

func (dao *ComponentDAO) SetSnapshotKey(ctx context.Context, id uuid.UUID, key string) error {
	return dao.DB.WithContext(ctx).Model(&models.Component{}).Where("id = ?", id).Update("snapshot_key", key).Error
}

func (dao *ComponentDAO) Latest(ctx context.Context, sessionID uuid.UUID) (*models.Component, error) {
	var c models.Component
	err := dao.DB.WithContext(ctx).Where("session_id = ? AND is_latest = ?", sessionID, true).First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (dao *ComponentDAO) GetForUser(ctx context.Context, id uuid.UUID, userID int) (*models.Component, error) {
	var c models.Component
	err := dao.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// ListForUser returns the latest version of each of the user's components.
func (dao *ComponentDAO) ListForUser(ctx context.Context, userID int, category string, p types.ListParams) ([]models.Component, int64, error) {
	p = p.Normalize()
	q := dao.DB.WithContext(ctx).Model(&models.Component{}).Where("user_id = ? AND is_latest = ?", userID, true)
	if category != "" {
		q = q.Where("category = ?", models.NormalizeCategory(category))
	}
	if p.Search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(p.Search)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Component
	err := q.Order("updated_at DESC").Offset(p.Offset()).Limit(p.Limit).Find(&out).Error
	return out, total, err
}

// Versions walks the parent chain from id back to the first version,
// newest first.
func (dao *ComponentDAO) Versions(ctx context.Context, id uuid.UUID, userID int) ([]models.Component, error) {
	c, err := dao.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	out := []models.Component{*c}
	seen := map[uuid.UUID]bool{c.ID: true}
	for c.ParentID != nil {
		if seen[*c.ParentID] {
			return nil, fmt.Errorf("component %s: version lineage has a cycle", id)
		}
		var parent models.Component
		err := dao.DB.WithContext(ctx).First(&parent, "id = ?", *c.ParentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// ancestor was deleted; the chain ends here
			break
		}
		if err != nil {
			return nil, err
		}
		seen[parent.ID] = true
		out = append(out, parent)
		c = &parent
	}
	return out, nil
}
