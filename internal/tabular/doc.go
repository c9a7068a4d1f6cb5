// Package tabular renders ranked lists as the CSV shape the backend imports
// and preflights import files before they are uploaded.
package tabular
