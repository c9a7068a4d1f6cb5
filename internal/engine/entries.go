package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"songrank/internal/logging"
	"songrank/internal/ranking"
	"songrank/internal/services"
	"songrank/internal/tabular"
	"songrank/internal/ytref"
)

// Load fetches the selected ranking and replaces the working copy.
func (e *Engine) Load(ctx context.Context) error {
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.release()
	return e.reconcile(ctx, e.Ranking(), CauseLoaded, nil)
}

// SelectRanking switches to another ranking. The previous working copy is
// discarded, not merged. Nothing changes when the new ranking cannot be
// fetched.
func (e *Engine) SelectRanking(ctx context.Context, slug string) error {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return fmt.Errorf("%w: ranking slug is empty", services.ErrValidation)
	}
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.release()

	ctx = services.WithRanking(ctx, slug)
	entries, err := e.gateway.ListEntries(ctx, slug)
	if err != nil {
		return fmt.Errorf("select ranking %q: %w", slug, err)
	}
	if err := e.session.SetRanking(slug); err != nil {
		return fmt.Errorf("persist ranking selection: %w", err)
	}
	e.commit(CauseSelected, func() {
		e.model.Reset(slug)
		e.model.Replace(entries)
		e.stale = false
		e.state = StateIdle
	})
	logging.WithContext(ctx, e.logger).Info("ranking selected",
		logging.String(logging.FieldEventType, "ranking_selected"),
		logging.Int("entries", len(entries)),
	)
	e.record(ctx, slug, entries)
	return nil
}

// Add appends a new entry. A placeholder is shown at the end of the list
// while the backend is asked to create it; it is removed again if the
// backend refuses. The reference is normalized to a bare video id first.
func (e *Engine) Add(ctx context.Context, draft ranking.Draft) (ranking.Entry, error) {
	if !e.session.Authorized() {
		return ranking.Entry{}, ErrReadOnly
	}
	videoID, err := normalizeRef(draft.VideoID)
	if err != nil {
		return ranking.Entry{}, err
	}
	draft.VideoID = videoID
	draft.Title = strings.TrimSpace(draft.Title)
	if err := e.acquire(); err != nil {
		return ranking.Entry{}, err
	}
	defer e.release()

	key := uuid.NewString()
	var slug string
	e.commit(CauseOptimistic, func() {
		slug = e.model.Slug()
		e.model.Append(draft.Entry(key, e.model.Len()+1))
	})
	ctx = services.WithRanking(ctx, slug)

	created, err := e.gateway.CreateEntry(ctx, slug, draft)
	if err != nil {
		e.commit(CauseRollback, func() {
			e.model.RemoveLocal(key)
		})
		return ranking.Entry{}, fmt.Errorf("add %q: %w", draft.Title, err)
	}

	e.mu.Lock()
	if index := e.model.IndexOfKey(key); index >= 0 {
		e.model.Set(index, created)
	}
	e.mu.Unlock()

	logging.WithContext(services.WithEntryID(ctx, created.ID), e.logger).Info("entry added",
		logging.String(logging.FieldEventType, "entry_added"),
		logging.Int("rank", created.Rank),
	)
	return created, e.reconcile(ctx, slug, CauseReconciled, nil)
}

// normalizeRef reduces a pasted reference to its video id. An empty reference
// stays empty; anything else must yield a canonical id.
func normalizeRef(ref string) (string, error) {
	videoID := ytref.Normalize(ref)
	if videoID != "" && !ytref.IsCanonical(videoID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, videoID)
	}
	return videoID, nil
}

// Update applies a partial edit to an entry. An empty patch sends nothing.
func (e *Engine) Update(ctx context.Context, id int64, patch ranking.Patch) error {
	if !e.session.Authorized() {
		return ErrReadOnly
	}
	if patch.Empty() {
		return nil
	}
	if err := e.requireEntry(id); err != nil {
		return err
	}
	if patch.VideoID != nil {
		videoID, err := normalizeRef(*patch.VideoID)
		if err != nil {
			return err
		}
		patch.VideoID = &videoID
	}
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.release()

	slug := e.Ranking()
	ctx = services.WithEntryID(services.WithRanking(ctx, slug), id)
	if err := e.gateway.UpdateEntry(ctx, id, patch); err != nil {
		return fmt.Errorf("update entry %d: %w", id, err)
	}
	logging.WithContext(ctx, e.logger).Info("entry updated",
		logging.String(logging.FieldEventType, "entry_updated"),
	)
	return e.reconcile(ctx, slug, CauseReconciled, nil)
}

func (e *Engine) requireEntry(id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model.IndexOf(id) < 0 {
		return fmt.Errorf("%w: entry %d is not in ranking %q", services.ErrNotFound, id, e.model.Slug())
	}
	return nil
}

// Delete removes an entry. The backend closes the rank gap; the working copy
// picks that up from the follow-up fetch.
func (e *Engine) Delete(ctx context.Context, id int64) error {
	if !e.session.Authorized() {
		return ErrReadOnly
	}
	if err := e.requireEntry(id); err != nil {
		return err
	}
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.release()

	slug := e.Ranking()
	ctx = services.WithEntryID(services.WithRanking(ctx, slug), id)
	if err := e.gateway.DeleteEntry(ctx, id, slug); err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	logging.WithContext(ctx, e.logger).Info("entry deleted",
		logging.String(logging.FieldEventType, "entry_deleted"),
	)
	return e.reconcile(ctx, slug, CauseReconciled, nil)
}

// Import replaces the selected ranking with the rows of a CSV file in the
// export format. The file is checked locally before it is uploaded.
func (e *Engine) Import(ctx context.Context, filename string, data []byte) (tabular.Summary, error) {
	if !e.session.Authorized() {
		return tabular.Summary{}, ErrReadOnly
	}
	summary, err := tabular.Check(bytes.NewReader(data))
	if err != nil {
		return tabular.Summary{}, services.Wrap(services.ErrValidation, component, "import", filename, err)
	}
	if err := e.acquire(); err != nil {
		return tabular.Summary{}, err
	}
	defer e.release()

	slug := e.Ranking()
	ctx = services.WithRanking(ctx, slug)
	if err := e.gateway.ImportTable(ctx, slug, filename, data); err != nil {
		return tabular.Summary{}, fmt.Errorf("import %s: %w", filename, err)
	}
	logging.WithContext(ctx, e.logger).Info("table imported",
		logging.String(logging.FieldEventType, "table_imported"),
		logging.Int("rows", summary.Rows),
	)
	return summary, e.reconcile(ctx, slug, CauseReconciled, nil)
}

// Export writes the working copy in the tabular format. Ranks follow the
// shown order, so a copy that is not yet confirmed still exports 1..N.
func (e *Engine) Export(w io.Writer) error {
	return tabular.Write(w, ranking.Renumbered(e.Entries()))
}

// Rankings lists every named ranking.
func (e *Engine) Rankings(ctx context.Context) ([]ranking.List, error) {
	lists, err := e.gateway.ListRankings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rankings: %w", err)
	}
	if e.recorder != nil {
		if err := e.recorder.SaveRankings(ctx, lists); err != nil {
			logging.WarnWithContext(e.logger, "ranking cache save failed", "snapshot_save_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "offline ranking list may be outdated"),
			)
		}
	}
	return lists, nil
}

// CreateRanking creates a named ranking. An empty slug is derived from name.
func (e *Engine) CreateRanking(ctx context.Context, name, slug string) (ranking.List, error) {
	if !e.session.Authorized() {
		return ranking.List{}, ErrReadOnly
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ranking.List{}, fmt.Errorf("%w: ranking name is empty", services.ErrValidation)
	}
	if slug = strings.TrimSpace(slug); slug == "" {
		slug = ranking.Slugify(name)
	}
	if slug == "" {
		return ranking.List{}, fmt.Errorf("%w: cannot derive a slug from %q", services.ErrValidation, name)
	}
	created, err := e.gateway.CreateRanking(ctx, name, slug)
	if err != nil {
		return ranking.List{}, fmt.Errorf("create ranking %q: %w", name, err)
	}
	logging.WithContext(services.WithRanking(ctx, created.Slug), e.logger).Info("ranking created",
		logging.String(logging.FieldEventType, "ranking_created"),
	)
	return created, nil
}
