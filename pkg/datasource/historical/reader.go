package historical

import (
	"errors"
	"fmt"
	"time"
)

const invalidIndex = -1

// CloseReader walks the closes of one symbol within [from, to].
type CloseReader struct {
	source *Source[BinaryClose]

	symbol string
	from   int64
	to     int64
	idx    int64

	head   BinaryClose
	loaded bool
	done   bool
}

func NewCloseReader(source *Source[BinaryClose], symbol string, from, to time.Time) *CloseReader {
	return &CloseReader{
		source: source,
		symbol: symbol,
		from:   from.UnixNano(),
		to:     to.UnixNano(),
		idx:    invalidIndex,
	}
}

func (c *CloseReader) Symbol() string { return c.symbol }

// Peek returns the current record without consuming it. ErrEof marks the end
// of the range.
func (c *CloseReader) Peek() (BinaryClose, error) {
	if c.done {
		return BinaryClose{}, ErrEof
	}
	if c.loaded {
		return c.head, nil
	}

	if c.idx == invalidIndex {
		if err := c.lookupStartIndex(); err != nil {
			return BinaryClose{}, c.fail(err)
		}
	}

	if err := c.source.Read(c.idx, &c.head); err != nil {
		return BinaryClose{}, c.fail(err)
	}
	if c.head.TimeStamp > c.to {
		c.done = true
		return BinaryClose{}, ErrEof
	}

	c.loaded = true
	return c.head, nil
}

func (c *CloseReader) Advance() {
	if c.loaded {
		c.idx++
		c.loaded = false
	}
}

func (c *CloseReader) fail(err error) error {
	if errors.Is(err, ErrEof) {
		c.done = true
	}
	return err
}

func (c *CloseReader) lookupStartIndex() error {
	entryCount, err := c.source.EntryCount()
	if err != nil {
		return fmt.Errorf("error getting entry count of %s: %w", c.symbol, err)
	}

	var entry BinaryClose

	low := int64(0)
	high := entryCount - 1

	for low <= high {
		mid := (low + high) / 2

		if err := c.source.Read(mid, &entry); err != nil {
			return fmt.Errorf("error reading entry %d of %s: %w", mid, c.symbol, err)
		}

		if entry.TimeStamp < c.from {
			low = mid + 1
		} else {
			high = mid - 1
		}
	}

	if low >= entryCount {
		return fmt.Errorf("no close of %s at or after range start: %w", c.symbol, ErrEof)
	}

	c.idx = low
	return nil
}
