package index

import (
	"errors"

	"github.com/hyperjump/omoide/internal/vector"
)

// ErrDimensionMismatch is returned by Add and Search when a vector's length
// does not match the index's locked dimension. No state is changed.
var ErrDimensionMismatch = vector.ErrDimensionMismatch

// ErrOutOfRange is returned by metadata lookups beyond the entry count.
// Correct callers never trigger it.
var ErrOutOfRange = errors.New("ordinal out of range")

// ErrCorruptIndex is returned by Load when the persisted artifacts disagree
// with each other. The caller decides whether to discard and rebuild.
var ErrCorruptIndex = errors.New("corrupt index")
