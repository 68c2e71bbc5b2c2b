package iolib

import (
	"io"

	"github.com/pkg/errors"
)

// DefaultMaxWriteRetries bounds consecutive writes that make no progress.
const DefaultMaxWriteRetries = 8

// WriteFull writes all of buf to w, retrying partial writes.
// A write that accepts zero bytes without an error counts as a retry;
// after maxRetries of them in a row io.ErrShortWrite is returned.
// A zero maxRetries uses DefaultMaxWriteRetries.
func WriteFull(w io.Writer, buf []byte, maxRetries uint) (uint, error) {
	if maxRetries == 0 {
		maxRetries = DefaultMaxWriteRetries
	}

	total, stalled := uint(0), uint(0)
	for total < uint(len(buf)) {
		n, err := w.Write(buf[total:])
		total += uint(n)
		if err != nil {
			return total, err
		}

		if n > 0 {
			stalled = 0
			continue
		}

		stalled++
		if stalled >= maxRetries {
			return total, errors.Wrapf(io.ErrShortWrite, "no progress after %d writes (%d/%d bytes)", stalled, total, len(buf))
		}
	}
	return total, nil
}
