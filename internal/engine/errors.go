package engine

import (
	"errors"
	"fmt"

	"songrank/internal/services"
)

var (
	// ErrReadOnly is returned for mutations attempted without a usable login.
	ErrReadOnly = fmt.Errorf("%w: list is read-only, log in to edit", services.ErrUnauthorized)
	// ErrBusy is returned while another gesture or request holds the engine.
	ErrBusy = errors.New("another change is still in progress")
	// ErrIndexOutOfRange reports a position outside the current list.
	ErrIndexOutOfRange = fmt.Errorf("%w: position out of range", services.ErrValidation)
	// ErrInvalidRank reports a typed rank that is not an integer in [1, N].
	ErrInvalidRank = fmt.Errorf("%w: invalid rank", services.ErrValidation)
	// ErrInvalidReference reports a video reference with no recognisable id.
	ErrInvalidReference = fmt.Errorf("%w: not a YouTube video reference", services.ErrValidation)
	// ErrNoDrag is returned by Drop when no drag gesture is active.
	ErrNoDrag = errors.New("no drag in progress")
	// ErrEditClosed is returned when a confirmed or cancelled rank edit is reused.
	ErrEditClosed = errors.New("rank edit already closed")
	// ErrStale marks a change the backend accepted whose follow-up fetch
	// failed. A reorder is reverted to the last fetched order; other changes
	// leave the local copy as it was.
	ErrStale = errors.New("list may be out of date")
)
