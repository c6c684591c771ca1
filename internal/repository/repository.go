// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory.
//
// Lookups that match no row return sql.ErrNoRows unchanged so callers can
// translate it into their own not-found error.
package repository

// PageQuery holds limit/offset pagination parameters.
// A non-positive Limit returns every row.
type PageQuery struct {
	Limit  int
	Offset int
}

// LimitArg returns the LIMIT bind value; nil means no limit.
func (pq PageQuery) LimitArg() any {
	if pq.Limit <= 0 {
		return nil
	}
	return pq.Limit
}

// OffsetArg returns the OFFSET bind value, clamped at zero.
func (pq PageQuery) OffsetArg() int {
	if pq.Offset < 0 {
		return 0
	}
	return pq.Offset
}
