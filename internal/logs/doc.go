// Package logs reads the CLI log file for `songrank logs`.
//
// Last returns the trailing lines with bounded memory; Follow polls for lines
// appended afterwards and starts over when the file is rotated underneath it.
package logs
