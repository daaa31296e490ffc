package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"uiforge/uiforge/services/codegen"
	"uiforge/uiforge/services/events"
	"uiforge/uiforge/services/llm"
	"uiforge/uiforge/sources/psql/dao"
	"uiforge/uiforge/sources/psql/models"
	"uiforge/uiforge/sources/storage"
	"uiforge/uiforge/utils/jsonutils"
	"uiforge/uiforge/utils/logging"
	"uiforge/uiforge/utils/types"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	ApologyText          = "Sorry, I encountered an error while generating the component. Please try again."
	allFailedMessage     = "All AI models failed. Please try again later."
	internalErrorMessage = "Generation failed because of an internal error."
)

type ComponentGenerator interface {
	Generate(ctx context.Context, req codegen.Request) (*codegen.Result, error)
}

type Processor struct {
	sessions   *dao.SessionDAO
	messages   *dao.MessageDAO
	components *dao.ComponentDAO
	generator  ComponentGenerator
	archive    storage.ComponentArchive
	broker     *events.Broker
	window     int
	locks      *keyedMutex
}

type ProcessorDeps struct {
	Sessions   *dao.SessionDAO
	Messages   *dao.MessageDAO
	Components *dao.ComponentDAO
	Generator  ComponentGenerator
	Archive    storage.ComponentArchive // optional
	Broker     *events.Broker           // optional
	Window     int
}

func NewProcessor(d ProcessorDeps) *Processor {
	return &Processor{
		sessions:   d.Sessions,
		messages:   d.Messages,
		components: d.Components,
		generator:  d.Generator,
		archive:    d.Archive,
		broker:     d.Broker,
		window:     d.Window,
		locks:      newKeyedMutex(),
	}
}

// Process drives one assistant message from processing to completed or failed.
// Generation failures end up on the message; only storage errors are returned.
func (p *Processor) Process(ctx context.Context, job Job) (err error) {
	defer logging.LogDuration(ctx, "worker_process")()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logging.ErrorLogger.Error("generation job panicked",
				zap.String("message_id", job.AssistantMessageID.String()), zap.Any("panic", r))
			err = p.fail(context.WithoutCancel(ctx), job, models.ErrorKindInternal, fmt.Errorf("panic: %v", r), start)
		}
	}()

	unlock := p.locks.Lock(job.SessionID)
	defer unlock()

	msg, err := p.messages.Get(ctx, job.AssistantMessageID)
	if err != nil {
		return fmt.Errorf("load assistant message: %w", err)
	}
	if msg.Status != models.StatusProcessing {
		logging.AppLogger.Info("skipping job, message no longer processing",
			zap.String("message_id", msg.ID.String()), zap.String("status", string(msg.Status)))
		return nil
	}

	req, err := p.buildRequest(ctx, job)
	if err != nil {
		return p.fail(ctx, job, models.ErrorKindInternal, err, start)
	}

	res, genErr := p.generator.Generate(ctx, req)
	if genErr != nil {
		kind := models.ErrorKindInternal
		var ge *codegen.GenerationError
		if errors.As(genErr, &ge) {
			kind = models.ErrorKindAllProvidersFailed
		}
		return p.fail(ctx, job, kind, genErr, start)
	}
	return p.complete(ctx, job, res, start)
}

func (p *Processor) buildRequest(ctx context.Context, job Job) (codegen.Request, error) {
	session, err := p.sessions.Get(ctx, job.SessionID)
	if err != nil {
		return codegen.Request{}, fmt.Errorf("load session: %w", err)
	}
	userMsg, err := p.messages.Get(ctx, job.UserMessageID)
	if err != nil {
		return codegen.Request{}, fmt.Errorf("load user message: %w", err)
	}
	history, err := p.messages.History(ctx, job.SessionID, userMsg.Sequence, p.window)
	if err != nil {
		return codegen.Request{}, fmt.Errorf("load history: %w", err)
	}

	turns := make([]codegen.HistoryTurn, 0, len(history))
	for _, h := range history {
		turns = append(turns, codegen.HistoryTurn{
			Role:     llm.Role(h.Role),
			Text:     h.Text,
			JSX:      h.Code.JSX,
			Status:   string(h.Status),
			Sequence: h.Sequence,
		})
	}
	images := make([]llm.Image, 0, len(userMsg.Images))
	for _, img := range userMsg.Images {
		images = append(images, llm.Image{URL: img.URL})
	}

	return codegen.Request{
		Message:     userMsg.Text,
		Images:      images,
		History:     turns,
		Model:       job.Model,
		Temperature: job.Temperature,
		Current: codegen.CurrentComponent{
			JSX:   session.CurrentComponent.JSX,
			CSS:   session.CurrentComponent.CSS,
			Props: session.CurrentComponent.Props,
		},
	}, nil
}

func (p *Processor) complete(ctx context.Context, job Job, res *codegen.Result, start time.Time) error {
	c := res.Component
	fields := map[string]interface{}{
		"text":                c.Explanation,
		"code_jsx":            c.JSX,
		"code_css":            c.CSS,
		"code_props":          datatypes.JSONMap(c.Props),
		"model":               res.Model,
		"temperature":         res.Temperature,
		"provider":            res.Provider,
		"provenance":          string(res.Provenance),
		"processing_ms":       res.Elapsed.Milliseconds(),
		"used_fallback":       res.UsedFallback,
		"validation_warnings": datatypes.JSONSlice[string](codegen.ValidateJSX(c.JSX)),
		"prompt_tokens":       nil,
		"completion_tokens":   nil,
		"total_tokens":        nil,
	}
	if res.Usage != nil {
		fields["prompt_tokens"] = res.Usage.PromptTokens
		fields["completion_tokens"] = res.Usage.CompletionTokens
		fields["total_tokens"] = res.Usage.TotalTokens
	}

	err := p.messages.Transition(ctx, job.AssistantMessageID, models.StatusCompleted, fields)
	if dao.IsInvalidTransition(err) {
		// cancelled while the provider was busy; leave the session alone
		logging.AppLogger.Info("generation finished after message left processing",
			zap.String("message_id", job.AssistantMessageID.String()))
		return nil
	}
	if err != nil {
		// the result could not be stored; the message must not stay processing
		cerr := fmt.Errorf("complete message: %w", err)
		if ferr := p.fail(context.WithoutCancel(ctx), job, models.ErrorKindInternal, cerr, start); ferr != nil {
			return errors.Join(cerr, ferr)
		}
		return nil
	}
	p.publish(job, models.StatusCompleted, "")

	code := models.ComponentCode{JSX: c.JSX, CSS: c.CSS, Props: c.Props}
	if code.IsEmpty() {
		logging.AppLogger.Warn("generation produced no code, session unchanged",
			zap.String("message_id", job.AssistantMessageID.String()), zap.String("provenance", string(res.Provenance)))
		return nil
	}

	session, err := p.sessions.ApplyGeneration(ctx, job.SessionID, code, res.Model)
	if err != nil {
		return fmt.Errorf("apply generation to session: %w", err)
	}
	p.saveComponent(ctx, job, session, res)
	return nil
}

// saveComponent records a new version and archives it. Failures are logged;
// the message and session are already final.
func (p *Processor) saveComponent(ctx context.Context, job Job, session *models.Session, res *codegen.Result) {
	c := res.Component
	userMsg, _ := p.messages.Get(ctx, job.UserMessageID)
	prompt := ""
	if userMsg != nil {
		prompt = userMsg.Text
	}

	comp := &models.Component{
		UserID:       session.UserID,
		SessionID:    session.ID,
		Name:         c.ComponentName,
		Description:  jsonutils.Truncate(c.Explanation, 500),
		Code:         session.CurrentComponent,
		Dependencies: c.Dependencies,
		Category:     c.Category,
		Complexity:   c.Complexity,
		Tags:         session.Tags,
		Features:     c.Features,
		AIModel:      res.Model,
		Prompt:       prompt,
	}
	if err := p.components.SaveVersion(ctx, comp); err != nil {
		logging.ErrorLogger.Error("save component version failed",
			zap.String("session_id", session.ID.String()), zap.Error(err))
		return
	}
	if p.archive == nil {
		return
	}

	key, err := p.archive.PutSnapshot(ctx, storage.Snapshot{
		ComponentID:  comp.ID,
		SessionID:    comp.SessionID,
		Version:      comp.Version,
		Name:         comp.Name,
		JSX:          comp.Code.JSX,
		CSS:          comp.Code.CSS,
		Props:        comp.Code.Props,
		Dependencies: comp.Dependencies,
		Model:        comp.AIModel,
		CreatedAt:    comp.CreatedAt,
	})
	if err != nil {
		logging.ErrorLogger.Error("archive component snapshot failed",
			zap.String("component_id", comp.ID.String()), zap.Error(err))
		return
	}
	if err := p.components.SetSnapshotKey(ctx, comp.ID, key); err != nil {
		logging.ErrorLogger.Error("store snapshot key failed", zap.String("component_id", comp.ID.String()), zap.Error(err))
	}
}

func (p *Processor) fail(ctx context.Context, job Job, kind string, cause error, start time.Time) error {
	userMessage := internalErrorMessage
	if kind == models.ErrorKindAllProvidersFailed {
		userMessage = allFailedMessage
	}
	logging.ErrorLogger.Error("generation failed",
		zap.String("message_id", job.AssistantMessageID.String()),
		zap.String("kind", kind), zap.Error(cause))

	err := p.messages.Transition(ctx, job.AssistantMessageID, models.StatusFailed, map[string]interface{}{
		"text":          ApologyText,
		"error_kind":    kind,
		"error_message": userMessage,
		"error_details": cause.Error(),
		"processing_ms": time.Since(start).Milliseconds(),
	})
	if dao.IsInvalidTransition(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fail message: %w", err)
	}
	p.publish(job, models.StatusFailed, kind)
	return nil
}

func (p *Processor) publish(job Job, status models.MessageStatus, errorKind string) {
	if p.broker == nil {
		return
	}
	p.broker.Publish(types.MessageEvent{
		MessageID: job.AssistantMessageID.String(),
		SessionID: job.SessionID.String(),
		Status:    string(status),
		ErrorKind: errorKind,
		At:        time.Now(),
	})
}
