package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"uiforge/uiforge/services/codegen"
	"uiforge/uiforge/services/events"
	"uiforge/uiforge/services/llm"
	"uiforge/uiforge/sources/psql/dao"
	"uiforge/uiforge/sources/psql/models"
	"uiforge/uiforge/sources/psql/psqltest"
	"uiforge/uiforge/sources/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type scriptedProvider struct {
	name  string
	calls atomic.Int32
	reply func(llm.Prompt) (*llm.RawResponse, error)
}

func (s *scriptedProvider) Name() string { return s.name }

func (s *scriptedProvider) Invoke(_ context.Context, p llm.Prompt) (*llm.RawResponse, error) {
	s.calls.Add(1)
	return s.reply(p)
}

func answer(text string) func(llm.Prompt) (*llm.RawResponse, error) {
	return func(p llm.Prompt) (*llm.RawResponse, error) {
		return &llm.RawResponse{Text: text, Model: p.Model}, nil
	}
}

func providerErr(kind llm.ErrorKind) func(llm.Prompt) (*llm.RawResponse, error) {
	return func(llm.Prompt) (*llm.RawResponse, error) {
		return nil, &llm.ProviderError{Provider: "test", Kind: kind, Message: "scripted"}
	}
}

type fixture struct {
	db         *gorm.DB
	sessions   *dao.SessionDAO
	messages   *dao.MessageDAO
	components *dao.ComponentDAO
	archive    *storage.MemoryArchive
	broker     *events.Broker
	primary    *scriptedProvider
	fallback   *scriptedProvider
	proc       *Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := psqltest.Open(t)
	f := &fixture{
		db:         db,
		sessions:   dao.NewSessionDAO(db),
		messages:   dao.NewMessageDAO(db),
		components: dao.NewComponentDAO(db),
		archive:    storage.NewMemoryArchive(),
		broker:     events.NewBroker(),
		primary:    &scriptedProvider{name: llm.ProviderOpenRouter, reply: providerErr(llm.KindTransport)},
		fallback:   &scriptedProvider{name: llm.ProviderGemini, reply: providerErr(llm.KindTransport)},
	}
	gen := codegen.NewGenerator(codegen.GeneratorConfig{
		DefaultModel:  "gpt-4o-mini",
		FallbackModel: "gemini-1.5-flash",
		Temperature:   0.7,
		Builder:       codegen.PromptBuilder{Window: 5, MaxTokens: 100},
	}, llm.MustDefaultCatalog(), f.primary, f.fallback)
	f.proc = NewProcessor(ProcessorDeps{
		Sessions: f.sessions, Messages: f.messages, Components: f.components,
		Generator: gen, Archive: f.archive, Broker: f.broker, Window: 5,
	})
	return f
}

// request stores a user/assistant pair the way the chat endpoint does.
func (f *fixture) request(t *testing.T, session *models.Session, text string) Job {
	t.Helper()
	user := &models.Message{Role: models.RoleUser, Text: text, Status: models.StatusCompleted}
	asst := &models.Message{Role: models.RoleAssistant, Text: "Generating your component...", Status: models.StatusProcessing}
	require.NoError(t, f.messages.AppendMessages(context.Background(), session.ID, user, asst))
	return Job{SessionID: session.ID, UserID: session.UserID, UserMessageID: user.ID, AssistantMessageID: asst.ID}
}

func (f *fixture) newSession(t *testing.T, code models.ComponentCode) *models.Session {
	t.Helper()
	s := &models.Session{UserID: 1, Title: "Session", CurrentComponent: code}
	require.NoError(t, f.sessions.Create(context.Background(), s))
	return s
}

func TestProcess_NewSessionCreateButton(t *testing.T) {
	f := newFixture(t)
	f.primary.reply = answer("```json\n{\"componentName\": \"ClickButton\", \"jsx\": \"<button>Click</button>\"}\n```")
	s := f.newSession(t, models.ComponentCode{})
	job := f.request(t, s, "create a button")

	updates, cancel := f.broker.Subscribe(job.AssistantMessageID.String())
	defer cancel()

	require.NoError(t, f.proc.Process(context.Background(), job))

	msg, err := f.messages.Get(context.Background(), job.AssistantMessageID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, msg.Status)
	assert.Equal(t, "<button>Click</button>", msg.Code.JSX)
	assert.Equal(t, "gpt-4o-mini", msg.Model)
	assert.Equal(t, string(codegen.Structured), msg.Provenance)
	assert.Nil(t, msg.TotalTokens)
	require.NotNil(t, msg.Temperature, "default temperature is recorded")
	assert.Equal(t, 0.7, *msg.Temperature)

	sess, err := f.sessions.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "<button>Click</button>", sess.CurrentComponent.JSX)
	assert.Equal(t, 2, sess.MessageCount)

	assert.EqualValues(t, 1, f.primary.calls.Load())
	assert.EqualValues(t, 0, f.fallback.calls.Load())

	comp, err := f.components.Latest(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, comp.Version)
	assert.Equal(t, "ClickButton", comp.Name)
	assert.Equal(t, storage.SnapshotKey(s.ID, 1), comp.SnapshotKey)
	assert.Equal(t, 1, f.archive.Len())

	ev := <-updates
	assert.Equal(t, "completed", ev.Status)
}

func TestProcess_TimeoutThenDegradedCSS(t *testing.T) {
	f := newFixture(t)
	f.primary.reply = providerErr(llm.KindTimeout)
	f.fallback.reply = answer("I had trouble with JSON. Here is the styling:\n```css\n.btn { color: red; }\n```")
	s := f.newSession(t, models.ComponentCode{JSX: "<button className=\"btn\">Go</button>"})
	job := f.request(t, s, "make it red")

	require.NoError(t, f.proc.Process(context.Background(), job))

	msg, err := f.messages.Get(context.Background(), job.AssistantMessageID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, msg.Status)
	assert.Empty(t, msg.Code.JSX)
	assert.Equal(t, ".btn { color: red; }", msg.Code.CSS)
	assert.True(t, msg.UsedFallback)
	assert.Equal(t, "gemini-1.5-flash", msg.Model)
	assert.Equal(t, string(codegen.Degraded), msg.Provenance)

	sess, err := f.sessions.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "<button className=\"btn\">Go</button>", sess.CurrentComponent.JSX)
	assert.Equal(t, ".btn { color: red; }", sess.CurrentComponent.CSS)
	assert.EqualValues(t, 1, f.primary.calls.Load())
	assert.EqualValues(t, 1, f.fallback.calls.Load())
}

func TestProcess_BothProvidersFail(t *testing.T) {
	f := newFixture(t)
	before := models.ComponentCode{JSX: "<div>keep me</div>", CSS: ".keep{}"}
	s := f.newSession(t, before)
	job := f.request(t, s, "break everything")

	require.NoError(t, f.proc.Process(context.Background(), job))

	msg, err := f.messages.Get(context.Background(), job.AssistantMessageID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, msg.Status)
	assert.Equal(t, models.ErrorKindAllProvidersFailed, msg.ErrorKind)
	assert.Equal(t, ApologyText, msg.Text)
	assert.NotEmpty(t, msg.ErrorMessage)

	sess, err := f.sessions.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, before.JSX, sess.CurrentComponent.JSX)
	assert.Equal(t, before.CSS, sess.CurrentComponent.CSS)
	assert.EqualValues(t, 2, f.primary.calls.Load()+f.fallback.calls.Load())

	_, err = f.components.Latest(context.Background(), s.ID)
	assert.ErrorIs(t, err, dao.ErrNotFound)
}

func TestProcess_SessionTracksLatestCompletedOnly(t *testing.T) {
	f := newFixture(t)
	s := f.newSession(t, models.ComponentCode{})

	f.primary.reply = answer(`{"jsx": "<v1/>"}`)
	require.NoError(t, f.proc.Process(context.Background(), f.request(t, s, "v1")))

	f.primary.reply = providerErr(llm.KindRateLimit)
	f.fallback.reply = answer(`{"jsx": "<v2/>"}`)
	require.NoError(t, f.proc.Process(context.Background(), f.request(t, s, "v2")))

	f.primary.reply = providerErr(llm.KindAuth)
	f.fallback.reply = providerErr(llm.KindTransport)
	failedJob := f.request(t, s, "v3")
	require.NoError(t, f.proc.Process(context.Background(), failedJob))

	sess, err := f.sessions.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "<v2/>", sess.CurrentComponent.JSX)

	versions, err := f.components.Versions(context.Background(), mustLatest(t, f, s.ID).ID, 1)
	require.NoError(t, err)
	assert.Len(t, versions, 2)

	// history for the next turn skips the failed reply
	f.primary.reply = func(p llm.Prompt) (*llm.RawResponse, error) {
		for _, turn := range p.Context {
			assert.NotContains(t, turn.Content, ApologyText)
		}
		assert.Contains(t, p.User, "<v2/>")
		return &llm.RawResponse{Text: `{"jsx": "<v4/>"}`}, nil
	}
	require.NoError(t, f.proc.Process(context.Background(), f.request(t, s, "v4")))
}

func mustLatest(t *testing.T, f *fixture, sessionID uuid.UUID) *models.Component {
	t.Helper()
	c, err := f.components.Latest(context.Background(), sessionID)
	require.NoError(t, err)
	return c
}

func TestProcess_CancelledMessageIsLeftAlone(t *testing.T) {
	f := newFixture(t)
	s := f.newSession(t, models.ComponentCode{JSX: "<old/>"})
	job := f.request(t, s, "x")

	f.primary.reply = func(p llm.Prompt) (*llm.RawResponse, error) {
		// the user cancels while the provider is working
		require.NoError(t, f.messages.Transition(context.Background(), job.AssistantMessageID, models.StatusCancelled, nil))
		return &llm.RawResponse{Text: `{"jsx": "<new/>"}`}, nil
	}
	require.NoError(t, f.proc.Process(context.Background(), job))

	msg, err := f.messages.Get(context.Background(), job.AssistantMessageID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, msg.Status)
	sess, err := f.sessions.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "<old/>", sess.CurrentComponent.JSX)

	// a second run of the same job is a no-op
	require.NoError(t, f.proc.Process(context.Background(), job))
	assert.EqualValues(t, 1, f.primary.calls.Load())
}

func TestProcess_StoreFailureMarksMessageFailed(t *testing.T) {
	f := newFixture(t)
	f.primary.reply = answer(`{"jsx": "<new/>"}`)
	s := f.newSession(t, models.ComponentCode{JSX: "<old/>"})
	job := f.request(t, s, "x")

	// the database refuses the completed write
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("reject_completed", func(tx *gorm.DB) {
		if m, ok := tx.Statement.Dest.(map[string]interface{}); ok && m["status"] == models.StatusCompleted {
			tx.AddError(errors.New(`invalid byte sequence for encoding "UTF8"`))
		}
	}))

	updates, cancel := f.broker.Subscribe(job.AssistantMessageID.String())
	defer cancel()

	require.NoError(t, f.proc.Process(context.Background(), job))

	msg, err := f.messages.Get(context.Background(), job.AssistantMessageID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, msg.Status)
	assert.Equal(t, models.ErrorKindInternal, msg.ErrorKind)
	assert.Equal(t, ApologyText, msg.Text)
	assert.Contains(t, msg.ErrorDetails, "complete message")

	sess, err := f.sessions.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "<old/>", sess.CurrentComponent.JSX)
	assert.Equal(t, "failed", (<-updates).Status)
}

func TestProcess_UnparseableKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.primary.reply = answer("I cannot build that, sorry.")
	s := f.newSession(t, models.ComponentCode{JSX: "<old/>"})
	job := f.request(t, s, "x")

	require.NoError(t, f.proc.Process(context.Background(), job))
	msg, err := f.messages.Get(context.Background(), job.AssistantMessageID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, msg.Status)
	assert.Equal(t, "I cannot build that, sorry.", msg.Text)
	assert.Equal(t, string(codegen.Unparseable), msg.Provenance)

	sess, err := f.sessions.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "<old/>", sess.CurrentComponent.JSX)
}

type panickyGenerator struct{}

func (panickyGenerator) Generate(context.Context, codegen.Request) (*codegen.Result, error) {
	panic("unexpected")
}

func TestProcess_PanicMarksMessageFailed(t *testing.T) {
	f := newFixture(t)
	f.proc.generator = panickyGenerator{}
	s := f.newSession(t, models.ComponentCode{})
	job := f.request(t, s, "x")

	require.NoError(t, f.proc.Process(context.Background(), job))
	msg, err := f.messages.Get(context.Background(), job.AssistantMessageID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, msg.Status)
	assert.Equal(t, models.ErrorKindInternal, msg.ErrorKind)
}

// blockingProcessor holds every job until released.
type blockingProcessor struct {
	mu      sync.Mutex
	seen    []uuid.UUID
	release chan struct{}
}

func (b *blockingProcessor) Process(_ context.Context, job Job) error {
	<-b.release
	b.mu.Lock()
	b.seen = append(b.seen, job.AssistantMessageID)
	b.mu.Unlock()
	if job.Model == "explode" {
		panic("boom")
	}
	return nil
}

func TestLocalDispatcher(t *testing.T) {
	proc := &blockingProcessor{release: make(chan struct{})}
	d := NewLocalDispatcher(proc, 1, 2)

	a := Job{AssistantMessageID: uuid.New()}
	require.NoError(t, d.Dispatch(context.Background(), a))
	assert.ErrorIs(t, d.Dispatch(context.Background(), a), ErrAlreadyQueued)

	require.NoError(t, d.Dispatch(context.Background(), Job{AssistantMessageID: uuid.New(), Model: "explode"}))
	close(proc.release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))

	proc.mu.Lock()
	assert.Len(t, proc.seen, 2)
	proc.mu.Unlock()
	assert.ErrorIs(t, d.Dispatch(context.Background(), Job{AssistantMessageID: uuid.New()}), ErrDispatcherClosed)
	assert.NoError(t, d.Shutdown(ctx))
}

func TestLocalDispatcherQueueFull(t *testing.T) {
	proc := &blockingProcessor{release: make(chan struct{})}
	d := NewLocalDispatcher(proc, 1, 1)
	defer func() {
		close(proc.release)
		_ = d.Shutdown(context.Background())
	}()

	var full error
	for i := 0; i < 5 && full == nil; i++ {
		full = d.Dispatch(context.Background(), Job{AssistantMessageID: uuid.New()})
	}
	assert.True(t, errors.Is(full, ErrQueueFull))
}

func TestKeyedMutexSerialisesPerKey(t *testing.T) {
	k := newKeyedMutex()
	key := uuid.New()
	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(key)
			n := active.Add(1)
			if n > maxActive.Load() {
				maxActive.Store(n)
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
			unlock()
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, maxActive.Load())
	assert.Empty(t, k.locks)
}
