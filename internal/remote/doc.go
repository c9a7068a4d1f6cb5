// Package remote implements the ranking backend gateway over HTTP and JSON.
//
// Every request carries the session's bearer token and an X-Request-ID. A
// 401 triggers one token refresh and a single retry; when the refresh itself
// is rejected the session is logged out. Failures are classified with the
// services markers: *ValidationError for field errors, ErrNetwork for
// transport failures, *StatusError (ErrServer) for 5xx responses.
package remote
