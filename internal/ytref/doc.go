// Package ytref turns whatever a user pastes into an entry form into a
// canonical 11-character YouTube video identifier.
//
// Normalize accepts bare ids, youtu.be short links, watch/embed/shorts URLs on
// the youtube.com family of hosts, and loose fragments such as "&v=<id>". It
// never fails: input that yields no identifier is returned trimmed so callers
// can decide whether to reject it. Use IsCanonical for that decision.
package ytref
