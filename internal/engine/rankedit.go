package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"songrank/internal/ranking"
)

// RankEdit is an in-progress typed rank change for one entry. Keystrokes are
// recorded with Input and only Confirm sends anything. It is not safe for
// concurrent use.
type RankEdit struct {
	engine *Engine
	key    string
	text   string
	closed bool
}

// BeginRankEdit opens a typed rank edit for the entry at index (0-based).
func (e *Engine) BeginRankEdit(index int) (*RankEdit, error) {
	if !e.session.Authorized() {
		return nil, ErrReadOnly
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if n := e.model.Len(); !ranking.InRange(index, n) {
		return nil, fmt.Errorf("%w: edit rank at %d in a list of %d", ErrIndexOutOfRange, index+1, n)
	}
	return &RankEdit{
		engine: e,
		key:    e.model.At(index).Key(),
		text:   strconv.Itoa(index + 1),
	}, nil
}

// Input replaces the typed text.
func (r *RankEdit) Input(text string) {
	if r.closed {
		return
	}
	r.text = text
}

// Text returns the typed text.
func (r *RankEdit) Text() string {
	return r.text
}

// Cancel abandons the edit without sending anything.
func (r *RankEdit) Cancel() {
	r.closed = true
}

// Confirm validates the typed rank and, when it differs from the current
// position, moves the entry there through the same path as a drag. An
// invalid value leaves the edit open.
func (r *RankEdit) Confirm(ctx context.Context) error {
	if r.closed {
		return ErrEditClosed
	}
	index, target, err := r.engine.resolveRank(r.key, r.text)
	if err != nil {
		return err
	}
	r.closed = true
	if index == target {
		return nil
	}
	return r.engine.Move(ctx, index, target)
}

// resolveRank returns the current and requested 0-based positions.
func (e *Engine) resolveRank(key, text string) (int, int, error) {
	e.mu.Lock()
	n := e.model.Len()
	index := e.model.IndexOfKey(key)
	e.mu.Unlock()

	if index < 0 {
		return 0, 0, fmt.Errorf("%w: entry %s is no longer in the list", ErrIndexOutOfRange, key)
	}
	rank, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || rank < 1 || rank > n {
		return 0, 0, fmt.Errorf("%w: %q is not a whole number between 1 and %d", ErrInvalidRank, text, n)
	}
	return index, rank - 1, nil
}
