package session

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lotsmith/internal/model"
)

// Run drives every pending lot through the enricher in queue order, one call
// in flight at a time. It returns when the batch is complete, the session is
// stopped, or ctx is cancelled. After cancellation no lot state is written:
// a result that resolves late is discarded.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return eris.New("session: run loop already active")
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	log := zap.L().With(zap.String("session", s.ID))
	log.Info("session: run loop starting", zap.Int("lots", len(s.lots)))

	for {
		idx, state := s.claimNext(ctx)
		switch state {
		case runDone:
			log.Info("session: batch complete")
			return nil
		case runStopped:
			log.Info("session: run loop exiting after stop")
			return nil
		case runCancelled:
			return ctx.Err()
		case runParked:
			if err := s.park(ctx); err != nil {
				return err
			}
			continue
		}

		// Pacing sits between claiming the lot and issuing the call so the
		// aggregate rate limit sees at most one request per interval. A
		// pause or stop raised mid-wait releases the claim untouched; a
		// cancelled ctx ends the loop with no further lot writes.
		if s.needsPacing() {
			interrupted, err := s.pace(ctx)
			if err != nil {
				return err
			}
			if interrupted {
				s.release(idx)
				continue
			}
		}

		lot := s.lotAt(idx)
		log.Info("session: enriching lot",
			zap.String("lot", lot.LotNumber),
			zap.Int("index", idx),
		)

		result, err := s.enricher.Enrich(ctx, lot)

		s.mu.Lock()
		if ctx.Err() != nil {
			s.mu.Unlock()
			return ctx.Err()
		}
		if err != nil {
			s.lots[idx].SetFailure(err.Error())
			log.Warn("session: lot failed",
				zap.String("lot", lot.LotNumber),
				zap.String("reason", err.Error()),
			)
		} else {
			s.lots[idx].SetResult(result.Title, result.Description)
		}
		s.processed++
		s.publishLocked(idx)
		s.mu.Unlock()
	}
}

type runState int

const (
	runClaimed runState = iota
	runDone
	runStopped
	runCancelled
	runParked
)

// claimNext scans for the first pending lot and marks it processing. The
// status change is published before the enrichment call is issued; the
// stored status is the only source of truth for "currently processing".
func (s *Session) claimNext(ctx context.Context) (int, runState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		return -1, runCancelled
	}
	if s.stopped {
		return -1, runStopped
	}
	if s.paused {
		return -1, runParked
	}

	for i, l := range s.lots {
		if l.Status != model.StatusPending {
			continue
		}
		l.Status = model.StatusProcessing
		s.publishLocked(i)
		return i, runClaimed
	}
	return -1, runDone
}

// release returns a claimed lot to pending without recording an attempt.
// Used when a pause or stop lands during the pacing wait.
func (s *Session) release(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lots[idx].Status == model.StatusProcessing {
		s.lots[idx].Status = model.StatusPending
		s.publishLocked(idx)
	}
}

// park blocks until Resume or Stop wakes the loop, or ctx is cancelled.
func (s *Session) park(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.wake:
		return nil
	}
}

func (s *Session) needsPacing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.PaceEvery <= 0 {
		return false
	}
	return s.processed > 0 || s.cfg.PaceFirst
}

// pace waits the configured interval in sub-waits, rechecking the control
// flags after each so a pause or stop takes effect without completing the
// full interval. Returns interrupted=true when a flag was raised.
func (s *Session) pace(ctx context.Context) (bool, error) {
	remaining := s.cfg.PaceEvery
	for remaining > 0 {
		step := paceSubWait
		if step > remaining {
			step = remaining
		}
		if err := s.sleep(ctx, step); err != nil {
			return false, err
		}
		remaining -= step

		s.mu.Lock()
		interrupted := s.paused || s.stopped
		s.mu.Unlock()
		if interrupted {
			return true, nil
		}
	}
	return false, nil
}

func (s *Session) lotAt(idx int) model.Lot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lots[idx].Original
}
