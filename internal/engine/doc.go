// Package engine keeps the working copy of the selected ranking in step with
// the backend.
//
// Every reorder is applied to the local collection first and reported to
// observers before any request leaves the process. The rank update is then
// sent; on success the whole list is fetched again and replaces the working
// copy, on failure the move is undone by replaying it in reverse. A single
// weighted semaphore admits one mutation at a time, so a second drag or edit
// arriving while a request is outstanding fails with ErrBusy instead of
// stacking a second optimistic change on top of the first.
//
// Login state and the selected ranking are not read from globals; callers
// pass a Session when constructing the Engine.
package engine
