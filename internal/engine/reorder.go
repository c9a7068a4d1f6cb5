package engine

import (
	"context"
	"fmt"

	"songrank/internal/logging"
	"songrank/internal/ranking"
	"songrank/internal/services"
)

// BeginDrag starts a drag gesture on the entry at src (0-based). The gesture
// holds the mutation slot until Drop or CancelDrag.
func (e *Engine) BeginDrag(src int) error {
	if !e.session.Authorized() {
		return ErrReadOnly
	}
	if err := e.acquire(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if n := e.model.Len(); !ranking.InRange(src, n) {
		e.release()
		return fmt.Errorf("%w: drag from %d in a list of %d", ErrIndexOutOfRange, src+1, n)
	}
	e.state = StateDragging
	e.dragSrc = src
	return nil
}

// CancelDrag ends a gesture that was dropped outside the list. The order is
// untouched and nothing is sent.
func (e *Engine) CancelDrag() {
	e.mu.Lock()
	if e.state != StateDragging {
		e.mu.Unlock()
		return
	}
	e.state = StateIdle
	e.mu.Unlock()
	e.release()
}

// Drop ends the active gesture at dst (0-based). Dropping onto the source
// position is a no-op; an invalid target cancels the gesture. Otherwise the
// entry is moved locally, the new rank is sent and the list is fetched again.
func (e *Engine) Drop(ctx context.Context, dst int) error {
	e.mu.Lock()
	if e.state != StateDragging {
		e.mu.Unlock()
		return ErrNoDrag
	}
	src, n := e.dragSrc, e.model.Len()
	if dst == src || !ranking.InRange(dst, n) {
		e.state = StateIdle
		e.mu.Unlock()
		e.release()
		if dst == src {
			return nil
		}
		return fmt.Errorf("%w: drop at %d in a list of %d", ErrIndexOutOfRange, dst+1, n)
	}
	e.state = StateReordering
	e.mu.Unlock()

	defer e.release()
	return e.reorder(ctx, src, dst)
}

// Move is a complete drag of the entry at src onto dst (both 0-based).
func (e *Engine) Move(ctx context.Context, src, dst int) error {
	if err := e.BeginDrag(src); err != nil {
		return err
	}
	return e.Drop(ctx, dst)
}

// reorder runs with the mutation slot held.
func (e *Engine) reorder(ctx context.Context, src, dst int) error {
	var (
		entry ranking.Entry
		slug  string
	)
	e.commit(CauseOptimistic, func() {
		entry = e.model.At(src)
		slug = e.model.Slug()
		e.model.Move(src, dst)
	})

	newRank := dst + 1
	ctx = services.WithEntryID(services.WithRanking(ctx, slug), entry.ID)
	logger := logging.WithContext(ctx, e.logger)

	if err := e.gateway.UpdateRank(ctx, entry.ID, newRank, slug); err != nil {
		e.commit(CauseRollback, func() {
			e.model.Move(dst, src)
			e.state = StateIdle
		})
		logging.WarnWithContext(logger, "rank update failed, order reverted", "reorder_rolled_back",
			logging.Int("from_rank", src+1),
			logging.Int("to_rank", newRank),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "retry the move once the backend is reachable"),
			logging.String(logging.FieldImpact, "list order unchanged"),
		)
		return fmt.Errorf("move %q to rank %d: %w", entry.Label(), newRank, err)
	}

	logger.Info("entry moved",
		logging.String(logging.FieldEventType, "reorder_confirmed"),
		logging.Int("from_rank", src+1),
		logging.Int("to_rank", newRank),
	)
	return e.reconcile(ctx, slug, CauseReconciled, func() { e.model.Move(dst, src) })
}

// reconcile replaces the working copy with the backend's order. It runs with
// the mutation slot held. When the fetch fails, revert (if set) restores the
// last fetched order; either way the copy is marked stale.
func (e *Engine) reconcile(ctx context.Context, slug string, cause Cause, revert func()) error {
	ctx = services.WithRanking(ctx, slug)
	logger := logging.WithContext(ctx, e.logger)

	entries, err := e.gateway.ListEntries(ctx, slug)
	if err != nil {
		failCause, impact := CauseStale, "displayed order is unconfirmed"
		if revert != nil {
			failCause, impact = CauseRollback, "last fetched order shown, backend may differ"
		}
		e.commit(failCause, func() {
			if revert != nil {
				revert()
			}
			e.stale = true
			e.state = StateIdle
		})
		logging.WarnWithContext(logger, "list refresh failed", "refresh_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run list again to fetch the current order"),
			logging.String(logging.FieldImpact, impact),
		)
		return fmt.Errorf("%w: refresh %q: %w", ErrStale, slug, err)
	}

	e.commit(cause, func() {
		e.model.Replace(entries)
		e.stale = false
		e.state = StateIdle
	})
	if err := ranking.CheckDense(entries); err != nil {
		logging.WarnWithContext(logger, "backend ranks are not dense", "ranks_not_dense",
			logging.Error(err),
			logging.String(logging.FieldImpact, "displayed positions differ from stored ranks"),
		)
	}
	e.record(ctx, slug, entries)
	return nil
}

func (e *Engine) record(ctx context.Context, slug string, entries []ranking.Entry) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Save(ctx, slug, entries); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "snapshot save failed", "snapshot_save_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "offline listing may be outdated"),
		)
	}
}
