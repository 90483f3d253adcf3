// Package progress tracks the bytes an archive operation reads and logs the
// rate and estimated time remaining while it runs.
package progress
