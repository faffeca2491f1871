// Package idgen generates snapshot and boot identifiers. Callers treat the
// values as opaque strings; tests may replace NewFunc.
package idgen
