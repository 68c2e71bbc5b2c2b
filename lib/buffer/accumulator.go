// Package buffer provides a growable byte container used to collect
// a message across partial reads.
package buffer

import (
	"bytes"

	"github.com/pkg/errors"
)

var ErrOutOfMemory = errors.New("accumulator size limit exceeded")

// Accumulator is an append-only byte container.
// Len always equals the number of bytes appended so far.
type Accumulator struct {
	data  []byte
	limit uint // 0 means unlimited.
}

// New creates an empty accumulator that refuses to grow beyond limit bytes.
// A zero limit disables the check.
func New(limit uint) *Accumulator {
	return &Accumulator{limit: limit}
}

// Append appends data to the end of the accumulator.
// If the limit would be exceeded, nothing is appended and ErrOutOfMemory is returned.
func (a *Accumulator) Append(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	if a.limit > 0 && uint(len(a.data))+uint(len(data)) > a.limit {
		return errors.Wrapf(ErrOutOfMemory, "appending %d bytes to %d (limit %d)", len(data), len(a.data), a.limit)
	}

	a.data = append(a.data, data...)
	return nil
}

func (a *Accumulator) Len() int { return len(a.data) }

// Bytes returns the accumulated content.
// The slice aliases internal storage and must not be modified.
func (a *Accumulator) Bytes() []byte { return a.data[:len(a.data):len(a.data)] }

func (a *Accumulator) String() string { return string(a.data) }

// Find returns the offset of the first occurrence of needle, or -1.
func (a *Accumulator) Find(needle []byte) int {
	if len(needle) == 0 || len(needle) > len(a.data) {
		return -1
	}
	return bytes.Index(a.data, needle)
}

// FindFold is like Find but folds ASCII letters before comparing.
// Non-ASCII bytes must match exactly.
func (a *Accumulator) FindFold(needle []byte) int {
	return IndexFold(a.data, needle)
}

// IndexFold returns the offset of the first ASCII case-insensitive
// occurrence of needle in s, or -1.
func IndexFold(s, needle []byte) int {
	if len(needle) == 0 || len(needle) > len(s) {
		return -1
	}

	last := len(s) - len(needle)
	for i := 0; i <= last; i++ {
		j := 0
		for ; j < len(needle); j++ {
			if lower(s[i+j]) != lower(needle[j]) {
				break
			}
		}
		if j == len(needle) {
			return i
		}
	}

	return -1
}

func lower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
