// Package session owns the persisted client state: who is logged in, the
// bearer tokens issued by the backend and the ranking the user last selected.
//
// Open reads the persisted state (or starts from defaults) and Logout clears
// the credentials while keeping the ranking selection. FileStore keeps the
// state in a 0600 JSON file under the state directory. AcquireEditLock
// serialises mutating commands across processes.
package session
