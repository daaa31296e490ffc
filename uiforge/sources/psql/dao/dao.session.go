package dao

import (
	"context"
	"strings"
	"time"

	"uiforge/uiforge/sources/psql/models"
	"uiforge/uiforge/utils/jsonutils"
	"uiforge/uiforge/utils/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionDAO struct {
	DB *gorm.DB
}

func NewSessionDAO(db *gorm.DB) *SessionDAO {
	return &SessionDAO{DB: db}
}

func (dao *SessionDAO) Create(ctx context.Context, s *models.Session) error {
	s.IsActive = true
	return dao.DB.WithContext(ctx).Create(s).Error
}

// Get loads an active session regardless of owner. Background jobs use it.
func (dao *SessionDAO) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var s models.Session
	err := dao.DB.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&s).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// GetForUser loads an active session owned by userID.
func (dao *SessionDAO) GetForUser(ctx context.Context, id uuid.UUID, userID int) (*models.Session, error) {
	var s models.Session
	err := dao.DB.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).
		First(&s).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (dao *SessionDAO) List(ctx context.Context, userID int, p types.ListParams) ([]models.Session, int64, error) {
	p = p.Normalize()
	q := dao.DB.WithContext(ctx).Model(&models.Session{}).Where("user_id = ? AND is_active = ?", userID, true)
	if search := strings.TrimSpace(p.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Session
	err := q.Order("last_activity DESC").Offset(p.Offset()).Limit(p.Limit).Find(&out).Error
	return out, total, err
}

func (dao *SessionDAO) Recent(ctx context.Context, userID, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 5
	}
	var out []models.Session
	err := dao.DB.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("last_activity DESC").Limit(limit).
		Find(&out).Error
	return out, err
}

// Update writes the given columns of an owned session.
func (dao *SessionDAO) Update(ctx context.Context, id uuid.UUID, userID int, fields map[string]interface{}) error {
	res := dao.DB.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (dao *SessionDAO) Touch(ctx context.Context, id uuid.UUID) error {
	return dao.DB.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", id).
		UpdateColumn("last_activity", time.Now()).Error
}

// SoftDelete hides the session; rows are kept.
func (dao *SessionDAO) SoftDelete(ctx context.Context, id uuid.UUID, userID int) error {
	return dao.Update(ctx, id, userID, map[string]interface{}{"is_active": false})
}

// Duplicate copies a session's settings and current component into a new,
// empty conversation.
func (dao *SessionDAO) Duplicate(ctx context.Context, src *models.Session) (*models.Session, error) {
	title := jsonutils.Truncate(src.Title+" (Copy)", 100)
	cp := &models.Session{
		UserID:      src.UserID,
		Title:       title,
		Description: src.Description,
		CurrentComponent: models.ComponentCode{
			JSX:   src.CurrentComponent.JSX,
			CSS:   src.CurrentComponent.CSS,
			Props: models.MergeProps(src.CurrentComponent.Props, nil),
		},
		AIModel:  src.AIModel,
		Tags:     append([]string(nil), src.Tags...),
		AutoSave: src.AutoSave,
		Theme:    src.Theme,
	}
	if err := dao.Create(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// ApplyGeneration merges a successful generation into the session's current
// component: non-empty JSX/CSS overwrite, props merge shallowly.
func (dao *SessionDAO) ApplyGeneration(ctx context.Context, id uuid.UUID, code models.ComponentCode, model string) (*models.Session, error) {
	var out models.Session
	err := dao.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND is_active = ?", id, true).
			First(&out).Error; err != nil {
			return notFound(err)
		}

		cur := out.CurrentComponent
		if code.JSX != "" {
			cur.JSX = code.JSX
		}
		if code.CSS != "" {
			cur.CSS = code.CSS
		}
		cur.Props = models.MergeProps(cur.Props, code.Props)

		fields := map[string]interface{}{
			"current_jsx":   cur.JSX,
			"current_css":   cur.CSS,
			"current_props": cur.Props,
			"last_activity": time.Now(),
		}
		if model != "" {
			fields["ai_model"] = model
		}
		if err := tx.Model(&models.Session{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return err
		}
		out.CurrentComponent = cur
		if model != "" {
			out.AIModel = model
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
