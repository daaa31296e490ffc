package controllers

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"uiforge/uiforge/services/events"
	"uiforge/uiforge/services/llm"
	"uiforge/uiforge/services/worker"
	"uiforge/uiforge/sources/psql/dao"
	"uiforge/uiforge/sources/psql/models"
	"uiforge/uiforge/utils/apperr"
	"uiforge/uiforge/utils/logging"
	"uiforge/uiforge/utils/types"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const placeholderText = "Generating your component..."

type ChatController struct {
	sessions     *dao.SessionDAO
	messages     *dao.MessageDAO
	dispatcher   worker.Dispatcher
	catalog      *llm.Catalog
	broker       *events.Broker
	defaultModel string
}

func NewChatController(sessions *dao.SessionDAO, messages *dao.MessageDAO, dispatcher worker.Dispatcher,
	catalog *llm.Catalog, broker *events.Broker, defaultModel string) *ChatController {
	return &ChatController{
		sessions:     sessions,
		messages:     messages,
		dispatcher:   dispatcher,
		catalog:      catalog,
		broker:       broker,
		defaultModel: defaultModel,
	}
}

func validateGenerate(req types.GenerateRequest) error {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return apperr.Validation("message", "is required")
	}
	if utf8.RuneCountInString(msg) > maxMessageLength {
		return apperr.Validation("message", "must be at most %d characters", maxMessageLength)
	}
	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		return apperr.Validation("temperature", "must be between 0 and 2")
	}
	if len(req.Model) > 100 {
		return apperr.Validation("model", "is too long")
	}
	for i, img := range req.Images {
		if strings.TrimSpace(img.URL) == "" {
			return apperr.Validation(fmt.Sprintf("images[%d].url", i), "is required")
		}
	}
	return nil
}

// GenerateComponent stores the user turn and a processing assistant turn,
// queues the generation and returns without waiting for it.
func (c *ChatController) GenerateComponent(ctx context.Context, userID int, req types.GenerateRequest) (*types.GenerateResponse, error) {
	defer logging.LogDuration(ctx, "GenerateComponent")()
	if err := validateGenerate(req); err != nil {
		return nil, err
	}

	session, err := c.resolveSession(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = session.AIModel
	}
	if model == "" {
		model = c.defaultModel
	}

	user := &models.Message{
		Role:   models.RoleUser,
		Text:   strings.TrimSpace(req.Message),
		Images: toModelImages(req.Images),
		Status: models.StatusCompleted,
	}
	assistant := &models.Message{
		Role:        models.RoleAssistant,
		Text:        placeholderText,
		Status:      models.StatusProcessing,
		Model:       model,
		Provider:    c.catalog.ProviderFor(model),
		Temperature: req.Temperature,
	}
	if err := c.messages.AppendMessages(ctx, session.ID, user, assistant); err != nil {
		return nil, translate(err, "session", session.ID.String())
	}

	job := worker.Job{
		SessionID:          session.ID,
		UserID:             userID,
		UserMessageID:      user.ID,
		AssistantMessageID: assistant.ID,
		Model:              model,
		Temperature:        req.Temperature,
	}
	if err := c.dispatcher.Dispatch(ctx, job); err != nil {
		logging.ErrorLogger.Error("dispatch generation failed",
			zap.String("message_id", assistant.ID.String()), zap.Error(err))
		_ = c.messages.Transition(context.WithoutCancel(ctx), assistant.ID, models.StatusFailed, map[string]interface{}{
			"text":          worker.ApologyText,
			"error_kind":    models.ErrorKindInternal,
			"error_message": "Generation could not be scheduled. Please try again.",
			"error_details": err.Error(),
		})
		return nil, fmt.Errorf("dispatch generation: %w", err)
	}

	logging.AppLogger.Info("generation queued",
		zap.String("session_id", session.ID.String()),
		zap.String("message_id", assistant.ID.String()),
		zap.String("model", model))

	return &types.GenerateResponse{
		SessionID:          session.ID.String(),
		UserMessageID:      user.ID.String(),
		AssistantMessageID: assistant.ID.String(),
		Status:             string(models.StatusProcessing),
		Model:              model,
	}, nil
}

func (c *ChatController) resolveSession(ctx context.Context, userID int, req types.GenerateRequest) (*models.Session, error) {
	if req.SessionID != "" {
		id, err := parseID("sessionId", req.SessionID)
		if err != nil {
			return nil, err
		}
		s, err := c.sessions.GetForUser(ctx, id, userID)
		return s, translate(err, "session", req.SessionID)
	}
	s := &models.Session{
		UserID:  userID,
		Title:   "Session " + time.Now().Format("2006-01-02 15:04"),
		AIModel: req.Model,
	}
	if err := c.sessions.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// AddMessage appends an arbitrary completed message, e.g. a note the client
// wants in the transcript. It never triggers generation.
func (c *ChatController) AddMessage(ctx context.Context, userID int, req types.AddMessageRequest) (*models.Message, error) {
	id, err := parseID("sessionId", req.SessionID)
	if err != nil {
		return nil, err
	}
	role := models.MessageRole(req.Role)
	if !role.Valid() {
		return nil, apperr.Validation("role", "must be user, assistant or system")
	}
	if utf8.RuneCountInString(req.Text) > maxMessageLength*5 {
		return nil, apperr.Validation("text", "is too long")
	}
	if _, err := c.sessions.GetForUser(ctx, id, userID); err != nil {
		return nil, translate(err, "session", req.SessionID)
	}

	m := &models.Message{
		Role:   role,
		Text:   req.Text,
		Images: toModelImages(req.Images),
		Status: models.StatusCompleted,
	}
	if req.Code != nil {
		m.Code = models.ComponentCode{JSX: req.Code.JSX, CSS: req.Code.CSS, Props: datatypes.JSONMap(req.Code.Props)}
	}
	if err := c.messages.AppendMessages(ctx, id, m); err != nil {
		return nil, translate(err, "session", req.SessionID)
	}
	return m, nil
}

func (c *ChatController) GetMessage(ctx context.Context, userID int, rawID string) (*models.Message, error) {
	id, err := parseID("id", rawID)
	if err != nil {
		return nil, err
	}
	m, err := c.messages.GetForUser(ctx, id, userID)
	return m, translate(err, "message", rawID)
}

// UpdateMessage edits the text of a user message. The previous text is kept
// in the edit history and no generation is re-run.
func (c *ChatController) UpdateMessage(ctx context.Context, userID int, rawID string, req types.UpdateMessageRequest) (*models.Message, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, apperr.Validation("text", "is required")
	}
	if utf8.RuneCountInString(text) > maxMessageLength {
		return nil, apperr.Validation("text", "must be at most %d characters", maxMessageLength)
	}
	m, err := c.GetMessage(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	if m.Role != models.RoleUser {
		return nil, apperr.Conflict("only user messages can be edited")
	}
	if err := c.messages.Edit(ctx, m, text); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *ChatController) DeleteMessage(ctx context.Context, userID int, rawID string) error {
	m, err := c.GetMessage(ctx, userID, rawID)
	if err != nil {
		return err
	}
	return translate(c.messages.Delete(ctx, m), "message", rawID)
}

// CancelMessage stops a pending or processing message from completing. A
// worker that finishes afterwards finds the message terminal and drops its result.
func (c *ChatController) CancelMessage(ctx context.Context, userID int, rawID string) (*models.Message, error) {
	m, err := c.GetMessage(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	err = c.messages.Transition(ctx, m.ID, models.StatusCancelled, map[string]interface{}{
		"error_kind":    models.ErrorKindCancelled,
		"error_message": "Generation was cancelled.",
	})
	if err != nil {
		return nil, translate(err, "message", rawID)
	}
	if c.broker != nil {
		c.broker.Publish(types.MessageEvent{
			MessageID: m.ID.String(),
			SessionID: m.SessionID.String(),
			Status:    string(models.StatusCancelled),
			ErrorKind: models.ErrorKindCancelled,
			At:        time.Now(),
		})
	}
	return c.messages.Get(ctx, m.ID)
}

// GetAvailableModels lists the catalog grouped by provider.
func (c *ChatController) GetAvailableModels() map[string][]types.ModelInfo {
	out := make(map[string][]types.ModelInfo, len(c.catalog.Providers))
	for _, provider := range c.catalog.ProviderNames() {
		list := make([]types.ModelInfo, 0, len(c.catalog.Providers[provider]))
		for _, m := range c.catalog.Providers[provider] {
			list = append(list, types.ModelInfo{ID: m.ID, Name: m.Name, Vendor: m.Vendor, Description: m.Description})
		}
		out[provider] = list
	}
	return out
}

// MessageState is what a status subscriber sees first.
func (c *ChatController) MessageState(ctx context.Context, userID int, rawID string) (types.MessageEvent, error) {
	m, err := c.GetMessage(ctx, userID, rawID)
	if err != nil {
		return types.MessageEvent{}, err
	}
	return types.MessageEvent{
		MessageID: m.ID.String(),
		SessionID: m.SessionID.String(),
		Status:    string(m.Status),
		ErrorKind: m.ErrorKind,
		At:        m.UpdatedAt,
	}, nil
}

// Subscribe forwards to the broker; the returned cancel must be called.
func (c *ChatController) Subscribe(messageID string) (<-chan types.MessageEvent, func()) {
	return c.broker.Subscribe(messageID)
}
