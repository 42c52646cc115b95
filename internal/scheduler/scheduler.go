// Package scheduler runs named periodic tasks with bounded execution time
// and a one-transaction-per-run store envelope.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/heatsight/heatscore/internal/store"
)

// DefaultMaxExecution bounds one task run when the registration does not
// set its own limit.
const DefaultMaxExecution = 300 * time.Second

// Startup task intervals.
const (
	HeatUpdateInterval    = 600 * time.Second
	KeywordUpdateInterval = 3600 * time.Second
	WeightUpdateInterval  = 7200 * time.Second
)

// TaskFunc is one scheduled unit of work. sess is nil unless the task was
// registered with WithSession.
type TaskFunc func(ctx context.Context, sess *store.Session) error

// Options configures one registration.
type Options struct {
	Interval time.Duration
	// WithSession opens a fresh store session per run.
	WithSession bool
	// AutoCommit commits the session on clean task exit. Without it the
	// session is rolled back at the end of the run unless the task
	// committed it itself.
	AutoCommit bool
	// MaxExecution bounds one run; zero means DefaultMaxExecution.
	MaxExecution time.Duration
}

// SessionSource opens store sessions. Satisfied by *store.Store.
type SessionSource interface {
	Begin(ctx context.Context) (*store.Session, error)
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler owns the task loops. Safe for concurrent registration.
type Scheduler struct {
	sessions SessionSource
	log      zerolog.Logger

	mu      sync.Mutex
	tasks   map[string]*task
	stopped bool
}

// New creates an empty scheduler. sessions may be nil when no registered
// task uses WithSession.
func New(sessions SessionSource) *Scheduler {
	return &Scheduler{
		sessions: sessions,
		log:      log.With().Str("component", "scheduler").Logger(),
		tasks:    make(map[string]*task),
	}
}

// Register starts a task loop under the given name. The first run happens
// immediately. Re-registering a name cancels the previous loop first.
func (s *Scheduler) Register(name string, fn TaskFunc, opts Options) {
	if opts.MaxExecution == 0 {
		opts.MaxExecution = DefaultMaxExecution
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.log.Warn().Str("task", name).Msg("Scheduler already stopped, registration ignored")
		return
	}
	if prev, ok := s.tasks[name]; ok {
		prev.cancel()
		<-prev.done
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}
	s.tasks[name] = t
	s.mu.Unlock()

	s.log.Info().Str("task", name).Dur("interval", opts.Interval).Msg("Task registered")
	go s.loop(ctx, name, fn, opts, t.done)
}

// Stop cancels every task loop and waits for them to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	tasks := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
		<-t.done
	}
	s.log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, name string, fn TaskFunc, opts Options, done chan struct{}) {
	defer close(done)

	for {
		s.runOnce(ctx, name, fn, opts)

		select {
		case <-time.After(opts.Interval):
		case <-ctx.Done():
			return
		}
	}
}

// runOnce executes one bounded run. On clean exit the session is committed
// when AutoCommit is set; any error or timeout rolls it back. Failures
// never stop the loop.
func (s *Scheduler) runOnce(ctx context.Context, name string, fn TaskFunc, opts Options) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, opts.MaxExecution)
	defer cancel()

	var sess *store.Session
	if opts.WithSession {
		var err error
		sess, err = s.sessions.Begin(runCtx)
		if err != nil {
			s.log.Error().Err(err).Str("task", name).Msg("Failed to open task session")
			return
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- fn(runCtx, sess)
	}()

	select {
	case err := <-errCh:
		switch {
		case err != nil:
			s.log.Error().Err(err).Str("task", name).
				Dur("duration", time.Since(start)).Msg("Task run failed")
			s.closeSession(sess, false, name)
		default:
			s.log.Info().Str("task", name).
				Dur("duration", time.Since(start)).Msg("Task run complete")
			s.closeSession(sess, opts.AutoCommit, name)
		}
	case <-runCtx.Done():
		s.log.Error().Str("task", name).Dur("max_execution", opts.MaxExecution).
			Msg("Task run timed out")
		// The context cancellation aborts the task's in-flight queries;
		// the late errCh send lands in the buffered channel.
		s.closeSession(sess, false, name)
	}
}

func (s *Scheduler) closeSession(sess *store.Session, commit bool, name string) {
	if sess == nil {
		return
	}
	if commit {
		if err := sess.Commit(); err != nil {
			s.log.Error().Err(err).Str("task", name).Msg("Task session commit failed")
		}
		return
	}
	if err := sess.Rollback(); err != nil {
		s.log.Error().Err(err).Str("task", name).Msg("Task session rollback failed")
	}
}
