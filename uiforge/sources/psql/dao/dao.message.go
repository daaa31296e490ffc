package dao

import (
	"context"
	"errors"
	"time"

	"uiforge/uiforge/sources/psql/models"
	"uiforge/uiforge/utils/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageDAO struct {
	DB *gorm.DB
}

func NewMessageDAO(db *gorm.DB) *MessageDAO {
	return &MessageDAO{DB: db}
}

// AppendMessages stores msgs in order at the end of the session and bumps its
// counter and activity, all in one transaction. Sequence numbers are assigned here.
func (dao *MessageDAO) AppendMessages(ctx context.Context, sessionID uuid.UUID, msgs ...*models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return dao.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the counter update also serialises concurrent appends on this session
		res := tx.Model(&models.Session{}).
			Where("id = ? AND is_active = ?", sessionID, true).
			Updates(map[string]interface{}{
				"message_count": gorm.Expr("message_count + ?", len(msgs)),
				"last_activity": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var last int
		if err := tx.Model(&models.Message{}).
			Where("session_id = ?", sessionID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		for i, m := range msgs {
			m.SessionID = sessionID
			m.Sequence = last + i + 1
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (dao *MessageDAO) Get(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var m models.Message
	if err := dao.DB.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// GetForUser loads a message whose session is active and owned by userID.
func (dao *MessageDAO) GetForUser(ctx context.Context, id uuid.UUID, userID int) (*models.Message, error) {
	owned := dao.DB.Model(&models.Session{}).Select("id").Where("user_id = ? AND is_active = ?", userID, true)
	var m models.Message
	err := dao.DB.WithContext(ctx).
		Where("id = ? AND session_id IN (?)", id, owned).
		First(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (dao *MessageDAO) ListForSession(ctx context.Context, sessionID uuid.UUID, p types.ListParams) ([]models.Message, int64, error) {
	p = p.Normalize()
	q := dao.DB.WithContext(ctx).Model(&models.Message{}).Where("session_id = ?", sessionID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Message
	err := q.Order("sequence ASC").Offset(p.Offset()).Limit(p.Limit).Find(&out).Error
	return out, total, err
}

// History returns up to limit completed messages that precede beforeSeq,
// oldest first.
func (dao *MessageDAO) History(ctx context.Context, sessionID uuid.UUID, beforeSeq, limit int) ([]models.Message, error) {
	var out []models.Message
	err := dao.DB.WithContext(ctx).
		Where("session_id = ? AND sequence < ? AND status = ?", sessionID, beforeSeq, models.StatusCompleted).
		Order("sequence DESC").Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Transition moves a message to status `to` and writes fields, but only if
// the current status may legally move there. Terminal messages never change.
func (dao *MessageDAO) Transition(ctx context.Context, id uuid.UUID, to models.MessageStatus, fields map[string]interface{}) error {
	from := models.Predecessors(to)
	if len(from) == 0 {
		return ErrInvalidTransition
	}
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["status"] = to

	res := dao.DB.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if _, err := dao.Get(ctx, id); err != nil {
		return err
	}
	return ErrInvalidTransition
}

// Edit records the previous text in the edit history and overwrites it.
func (dao *MessageDAO) Edit(ctx context.Context, m *models.Message, text string) error {
	history := append(append(models.EditHistory(nil), m.EditHistory...), models.EditEntry{Text: m.Text, EditedAt: time.Now()})
	err := dao.DB.WithContext(ctx).Model(&models.Message{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
		"text":         text,
		"is_edited":    true,
		"edit_history": history,
	}).Error
	if err != nil {
		return err
	}
	m.Text = text
	m.IsEdited = true
	m.EditHistory = history
	return nil
}

// Delete removes a message and decrements its session's counter.
func (dao *MessageDAO) Delete(ctx context.Context, m *models.Message) error {
	return dao.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Message{}, "id = ?", m.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.Session{}).
			Where("id = ? AND message_count > 0", m.SessionID).
			UpdateColumn("message_count", gorm.Expr("message_count - 1")).Error
	})
}

// IsInvalidTransition reports whether err came from a refused transition.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// FailStuck marks messages left in processing since before cutoff as failed.
// It runs at startup, after a crash lost their in-memory jobs.
func (dao *MessageDAO) FailStuck(ctx context.Context, cutoff time.Time, fields map[string]interface{}) (int64, error) {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["status"] = models.StatusFailed
	res := dao.DB.WithContext(ctx).Model(&models.Message{}).
		Where("status = ? AND updated_at < ?", models.StatusProcessing, cutoff).
		Updates(updates)
	return res.RowsAffected, res.Error
}
