// File: api/pool.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract free-pool API used to recycle connection entities.

package api

// FreePool hands out reusable entities and takes them back.
// Borrowed entities are owned exclusively by the caller until returned.
type FreePool[T any] interface {
	// Borrow returns an idle entity, allocating one when none is idle.
	Borrow() (T, error)

	// Return gives an entity back; entities beyond capacity are destroyed.
	Return(obj T)

	// Free reports the number of idle entities retained.
	Free() int

	// Cap reports the maximum number of idle entities retained.
	Cap() int
}
