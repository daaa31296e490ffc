package types

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	AIModel     string   `json:"aiModel,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	IsPublic    bool     `json:"isPublic,omitempty"`
}

// UpdateSessionRequest carries a partial update; nil fields are left alone.
type UpdateSessionRequest struct {
	Title            *string  `json:"title,omitempty"`
	Description      *string  `json:"description,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	IsPublic         *bool    `json:"isPublic,omitempty"`
	AIModel          *string  `json:"aiModel,omitempty"`
	AutoSave         *bool    `json:"autoSave,omitempty"`
	Theme            *string  `json:"theme,omitempty"`
	CurrentComponent *Code    `json:"currentComponent,omitempty"`
}

type ListParams struct {
	Page   int
	Limit  int
	Search string
}

// Normalize clamps paging to sane bounds.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > 100 {
		p.Limit = 20
	}
	return p
}

func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}
