// Package services defines shared utilities consumed by the engine, the
// remote gateway and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, the active ranking slug and
//     entry IDs for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (validation vs network vs server) for callers and process exit codes.
//
// Use these helpers when wiring new operations so error handling and log
// correlation stay uniform.
package services
