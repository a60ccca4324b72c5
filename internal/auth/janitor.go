package auth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CleanupInterval is how often expired OAuth states and sessions are purged
const CleanupInterval = 5 * time.Minute

// Janitor purges expired OAuth states and sessions in the background.
type Janitor struct {
	stateStore   *OAuthStateStore
	sessionStore *SessionStore
	interval     time.Duration
	logger       *zap.Logger
	stopCh       chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

func NewJanitor(stateStore *OAuthStateStore, sessionStore *SessionStore, logger *zap.Logger) *Janitor {
	return &Janitor{
		stateStore:   stateStore,
		sessionStore: sessionStore,
		interval:     CleanupInterval,
		logger:       logger,
		stopCh:       make(chan struct{}),
	}
}

// Start runs one sweep immediately, then one per interval until ctx ends or Stop is called.
func (j *Janitor) Start(ctx context.Context) {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.sweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-j.stopCh:
				return
			case <-ticker.C:
				j.sweep(ctx)
			}
		}
	}()
}

// Stop waits for the background goroutine to exit. Safe to call more than once.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
	j.wg.Wait()
}

func (j *Janitor) sweep(ctx context.Context) {
	if err := j.stateStore.CleanupExpiredStates(ctx); err != nil {
		j.logger.Warn("Failed to clean up OAuth states", zap.Error(err))
	}
	if err := j.sessionStore.CleanupExpiredSessions(ctx); err != nil {
		j.logger.Warn("Failed to clean up sessions", zap.Error(err))
	}
}
