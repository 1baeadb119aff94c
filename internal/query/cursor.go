package query

import (
	"errors"
	"io"
	"sync"
)

// ErrNoMoreResults is returned by Next once a cursor is exhausted.
var ErrNoMoreResults = errors.New("no more results")

// ErrCursorClosed is returned by Next after Close.
var ErrCursorClosed = errors.New("cursor is closed")

// Source yields the next element, or io.EOF when there are none left.
type Source[T any] func() (T, error)

// Cursor is a lazy, forward-only sequence that can be consumed once.
// It must be closed when abandoned before the end; closing twice, or after
// an error, is safe.
type Cursor[T any] struct {
	next   Source[T]
	closer func() error

	peeked  bool
	item    T
	err     error
	done    bool
	closed  bool
	closeMu sync.Once
	closeEr error
}

// NewCursor wraps a Source. closer may be nil.
func NewCursor[T any](next Source[T], closer func() error) *Cursor[T] {
	return &Cursor[T]{next: next, closer: closer}
}

// SliceCursor returns a cursor over a fixed slice.
func SliceCursor[T any](items []T) *Cursor[T] {
	i := 0
	return NewCursor(func() (T, error) {
		var zero T
		if i >= len(items) {
			return zero, io.EOF
		}
		item := items[i]
		i++
		return item, nil
	}, nil)
}

// HasNext reports whether Next would return an element. It pulls from the
// source; a failure ends the cursor and is reported by Err.
func (c *Cursor[T]) HasNext() bool {
	if c.closed || c.done {
		return false
	}
	if c.peeked {
		return true
	}
	item, err := c.next()
	if err != nil {
		c.done = true
		if !errors.Is(err, io.EOF) {
			c.err = err
		}
		_ = c.Close()
		return false
	}
	c.item = item
	c.peeked = true
	return true
}

// Next returns the next element.
func (c *Cursor[T]) Next() (T, error) {
	var zero T
	if c.closed && !c.peeked {
		if c.err != nil {
			return zero, c.err
		}
		if c.done {
			return zero, ErrNoMoreResults
		}
		return zero, ErrCursorClosed
	}
	if !c.HasNext() {
		if c.err != nil {
			return zero, c.err
		}
		return zero, ErrNoMoreResults
	}
	item := c.item
	c.item = zero
	c.peeked = false
	return item, nil
}

// Err returns the first error met while reading.
func (c *Cursor[T]) Err() error {
	return c.err
}

// Close releases the underlying source.
func (c *Cursor[T]) Close() error {
	c.closeMu.Do(func() {
		c.closed = true
		if c.closer != nil {
			c.closeEr = c.closer()
		}
	})
	return c.closeEr
}

// Map converts each element of c. Closing the result closes c.
func Map[T, U any](c *Cursor[T], convert func(T) (U, error)) *Cursor[U] {
	return NewCursor(func() (U, error) {
		var zero U
		if !c.HasNext() {
			if err := c.Err(); err != nil {
				return zero, err
			}
			return zero, io.EOF
		}
		item, err := c.Next()
		if err != nil {
			return zero, err
		}
		return convert(item)
	}, c.Close)
}

// Collect drains c into a slice and closes it.
func Collect[T any](c *Cursor[T]) ([]T, error) {
	defer c.Close()
	var out []T
	for c.HasNext() {
		item, err := c.Next()
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, c.Err()
}

// ForEach pushes every element to fn and closes c. It stops at the first
// error returned by fn.
func ForEach[T any](c *Cursor[T], fn func(T) error) error {
	defer c.Close()
	for c.HasNext() {
		item, err := c.Next()
		if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
	}
	return c.Err()
}
