// Package main hosts the songrank CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration, restores the persisted
// session and hands each invocation to the synchronisation engine, which
// talks to the ranking backend. Commands that change a list take the
// cross-process edit lock first so two terminals cannot interleave reorders.
//
// Keep this package lean: behaviour belongs in the internal packages, the
// commands here only parse arguments and render results.
package main
