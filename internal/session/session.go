// Package session owns a working batch of lots and drives them through
// enrichment one at a time, under operator control.
//
// The queue of enrichment states is the single shared mutable resource. The
// run loop only ever touches pending lots; Rerun only accepts lots in a
// terminal status. That split, enforced here, is what lets a rerun overlap
// the main loop without locking individual lots.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lotsmith/internal/enrich"
	"github.com/sells-group/lotsmith/internal/model"
)

var (
	// ErrStopped is returned by operations on a stopped session. Stop is
	// terminal; there is no unstop.
	ErrStopped = eris.New("session: stopped")

	// ErrNothingPending is returned by Pause when no lot is pending.
	ErrNothingPending = eris.New("session: no pending lots")

	// ErrNotFound is returned when a lot number matches nothing in the batch.
	ErrNotFound = eris.New("session: lot not found")

	// ErrNotRerunnable is returned by Rerun for lots the main loop still owns.
	ErrNotRerunnable = eris.New("session: lot is not in a re-runnable status")
)

// Enricher is the single-call enrichment contract the session drives.
type Enricher interface {
	Enrich(ctx context.Context, lot model.Lot) (*enrich.Result, error)
}

// Config tunes the run loop's pacing policy.
type Config struct {
	// PaceEvery is the wait inserted before each enrichment call. Zero
	// disables pacing.
	PaceEvery time.Duration

	// PaceFirst applies the pacing wait before the first call too. The
	// default paces only between calls, which is what an aggregate
	// rate limit cares about.
	PaceFirst bool
}

// DefaultConfig paces 15s between calls, none before the first.
func DefaultConfig() Config {
	return Config{PaceEvery: 15 * time.Second}
}

// paceSubWait is the granularity at which a pacing wait rechecks the
// pause/stop flags and context.
const paceSubWait = 250 * time.Millisecond

// UpdateFunc observes every published lot state change. It receives a copy
// and must not call back into the session.
type UpdateFunc func(index int, lot model.EnrichedLot)

// Session is one working batch: the wrapped lots, the operator control
// flags, and the run loop state.
type Session struct {
	ID string

	mu   sync.Mutex
	lots []*model.EnrichedLot

	paused    bool
	stopped   bool
	resumeSeq uint64
	running   bool
	processed int

	// wake unparks the run loop after Resume or Stop.
	wake chan struct{}

	enricher Enricher
	cfg      Config
	onUpdate UpdateFunc

	// sleep performs pacing sub-waits; injected so tests run without
	// wall-clock delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a session over freshly ingested lots.
func New(id string, lots []model.Lot, enricher Enricher, cfg Config) *Session {
	wrapped := make([]*model.EnrichedLot, len(lots))
	for i, lot := range lots {
		wrapped[i] = model.NewEnrichedLot(lot)
	}
	return &Session{
		ID:       id,
		lots:     wrapped,
		enricher: enricher,
		cfg:      cfg,
		wake:     make(chan struct{}, 1),
		sleep:    sleepContext,
	}
}

// OnUpdate registers the publish hook. Call before Run.
func (s *Session) OnUpdate(fn UpdateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = fn
}

// Pause halts the loop before the next lot starts. An in-flight call is
// allowed to finish; only the next start is gated.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if !s.hasPendingLocked() {
		return ErrNothingPending
	}
	s.paused = true
	zap.L().Info("session: paused", zap.String("session", s.ID))
	return nil
}

// Resume clears a pause and wakes the loop.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	s.paused = false
	s.resumeSeq++
	s.signalLocked()
	zap.L().Info("session: resumed",
		zap.String("session", s.ID),
		zap.Uint64("resume_seq", s.resumeSeq),
	)
	return nil
}

// Stop halts the loop permanently for this session. Pending lots stay
// pending and are never submitted.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.paused = true
	s.signalLocked()
	zap.L().Info("session: stopped", zap.String("session", s.ID))
}

// Edit stores an operator correction for a lot. Allowed in any status; an
// enriched lot moves to edited.
func (s *Session) Edit(lotNumber, title, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(lotNumber)
	if i < 0 {
		return eris.Wrapf(ErrNotFound, "lot %s", lotNumber)
	}
	s.lots[i].ApplyEdit(title, description)
	s.publishLocked(i)
	return nil
}

// Rerun re-enriches a single lot outside the main loop: no pacing, no queue
// order. Only lots in enriched, edited, or error status qualify, which keeps
// the rerun off anything the loop might pick up.
func (s *Session) Rerun(ctx context.Context, lotNumber string) error {
	s.mu.Lock()
	i := s.indexOfLocked(lotNumber)
	if i < 0 {
		s.mu.Unlock()
		return eris.Wrapf(ErrNotFound, "lot %s", lotNumber)
	}
	switch s.lots[i].Status {
	case model.StatusEnriched, model.StatusEdited, model.StatusError:
	default:
		s.mu.Unlock()
		return eris.Wrapf(ErrNotRerunnable, "lot %s is %s", lotNumber, s.lots[i].Status)
	}
	s.lots[i].Status = model.StatusProcessing
	s.lots[i].Err = ""
	original := s.lots[i].Original
	s.publishLocked(i)
	s.mu.Unlock()

	result, err := s.enricher.Enrich(ctx, original)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		// Teardown won the race; the state container may already be retired.
		return ctx.Err()
	}
	if err != nil {
		s.lots[i].SetFailure(err.Error())
	} else {
		s.lots[i].SetResult(result.Title, result.Description)
	}
	s.publishLocked(i)
	return nil
}

// MarkPushed records a confirmed push for a lot. All push-side writes come
// through here so they hold the same lock as the run loop and the snapshot
// readers.
func (s *Session) MarkPushed(lotNumber, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(lotNumber)
	if i < 0 {
		return eris.Wrapf(ErrNotFound, "lot %s", lotNumber)
	}
	s.lots[i].MarkPushed(itemID)
	s.publishLocked(i)
	return nil
}

// Snapshot returns a copy of every lot state in queue order.
func (s *Session) Snapshot() []model.EnrichedLot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.EnrichedLot, len(s.lots))
	for i, l := range s.lots {
		out[i] = *l
	}
	return out
}

// Summary projects the aggregate counts from stored statuses.
func (s *Session) Summary() model.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Summarize(s.lots)
}

// Stopped reports whether the session was stopped.
func (s *Session) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Session) indexOfLocked(lotNumber string) int {
	want := strings.TrimSpace(lotNumber)
	for i, l := range s.lots {
		if strings.TrimSpace(l.Original.LotNumber) == want {
			return i
		}
	}
	return -1
}

func (s *Session) hasPendingLocked() bool {
	for _, l := range s.lots {
		if l.Status == model.StatusPending {
			return true
		}
	}
	return false
}

// signalLocked wakes the run loop without blocking if a wake is already queued.
func (s *Session) signalLocked() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) publishLocked(i int) {
	if s.onUpdate != nil {
		s.onUpdate(i, *s.lots[i])
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
