package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

func (r MessageRole) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

type MessageStatus string

const (
	StatusPending    MessageStatus = "pending"
	StatusProcessing MessageStatus = "processing"
	StatusCompleted  MessageStatus = "completed"
	StatusFailed     MessageStatus = "failed"
	StatusCancelled  MessageStatus = "cancelled"
)

// transitions lists the legal next states; terminal states have none.
var transitions = map[MessageStatus][]MessageStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
}

func (s MessageStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s MessageStatus) CanTransitionTo(next MessageStatus) bool {
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Predecessors returns the states from which next is reachable.
func Predecessors(next MessageStatus) []MessageStatus {
	var out []MessageStatus
	for from, tos := range transitions {
		for _, to := range tos {
			if to == next {
				out = append(out, from)
			}
		}
	}
	return out
}

const (
	ErrorKindAllProvidersFailed = "AllProvidersFailed"
	ErrorKindInternal           = "InternalError"
	ErrorKindCancelled          = "Cancelled"
)

type Image struct {
	URL      string `json:"url"`
	Alt      string `json:"alt,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

type EditEntry struct {
	Text     string    `json:"text"`
	EditedAt time.Time `json:"editedAt"`
}

var (
	ErrEmptyUserMessage      = errors.New("user message requires text or at least one image")
	ErrEmptyAssistantMessage = errors.New("assistant message requires text or jsx")
	ErrInvalidRole           = errors.New("invalid message role")
)

type Message struct {
	ID        uuid.UUID                  `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID uuid.UUID                  `json:"sessionId" gorm:"type:uuid;not null;uniqueIndex:idx_message_session_seq,priority:1"`
	Sequence  int                        `json:"sequence" gorm:"not null;uniqueIndex:idx_message_session_seq,priority:2"`
	Role      MessageRole                `json:"role" gorm:"type:varchar(16);not null"`
	Text      string                     `json:"text" gorm:"type:text"`
	Images    datatypes.JSONSlice[Image] `json:"images,omitempty"`
	Code      ComponentCode              `json:"code" gorm:"embedded;embeddedPrefix:code_"`
	Status    MessageStatus              `json:"status" gorm:"type:varchar(16);not null;index"`

	ErrorKind    string `json:"errorKind,omitempty" gorm:"type:varchar(64)"`
	ErrorMessage string `json:"errorMessage,omitempty" gorm:"type:text"`
	ErrorDetails string `json:"-" gorm:"type:text"`

	Model            string   `json:"model,omitempty" gorm:"type:varchar(100)"`
	Provider         string   `json:"provider,omitempty" gorm:"type:varchar(32)"`
	Provenance       string   `json:"provenance,omitempty" gorm:"type:varchar(16)"`
	PromptTokens     *int     `json:"promptTokens"`
	CompletionTokens *int     `json:"completionTokens"`
	TotalTokens      *int     `json:"totalTokens"`
	ProcessingMs     int64    `json:"processingMs"`
	Temperature      *float64 `json:"temperature,omitempty"`
	UsedFallback     bool     `json:"usedFallback"`

	IsEdited           bool                           `json:"isEdited"`
	EditHistory        datatypes.JSONSlice[EditEntry] `json:"editHistory,omitempty"`
	ValidationWarnings datatypes.JSONSlice[string]    `json:"validationWarnings,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the content rules for the message role.
func (m *Message) Validate() error {
	if !m.Role.Valid() {
		return ErrInvalidRole
	}
	switch m.Role {
	case RoleUser:
		if strings.TrimSpace(m.Text) == "" && len(m.Images) == 0 {
			return ErrEmptyUserMessage
		}
	case RoleAssistant:
		if strings.TrimSpace(m.Text) == "" && strings.TrimSpace(m.Code.JSX) == "" {
			return ErrEmptyAssistantMessage
		}
	}
	return nil
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = StatusCompleted
	}
	return m.Validate()
}

// EditHistory is the stored list of previous texts of a message.
type EditHistory = datatypes.JSONSlice[EditEntry]
