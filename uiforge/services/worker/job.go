// Package worker runs generation jobs in the background, one owner per
// assistant message.
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrAlreadyQueued    = errors.New("a job for this message is already queued")
	ErrQueueFull        = errors.New("generation queue is full")
	ErrDispatcherClosed = errors.New("dispatcher is shut down")
)

// Job is keyed by the assistant message it completes.
type Job struct {
	SessionID          uuid.UUID
	UserID             int
	UserMessageID      uuid.UUID
	AssistantMessageID uuid.UUID
	Model              string
	Temperature        *float64
}

type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
	Shutdown(ctx context.Context) error
}

// JobProcessor is what dispatchers run.
type JobProcessor interface {
	Process(ctx context.Context, job Job) error
}

// keyedMutex serialises work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*refLock)}
}

func (k *keyedMutex) Lock(key uuid.UUID) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
