// Package types defines the cursor library entities, the image kind variant,
// the cursor slot table, and the contracts through which cursorbox talks to
// its host (filesystem, system cursor sink, library event sink).
package types
