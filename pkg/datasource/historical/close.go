package historical

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/peter-kozarec/pairs/pkg/common"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

// BinaryClose is the on-disk record of one close, little endian, 16 bytes.
type BinaryClose struct {
	TimeStamp int64 // unix nanos
	Close     float64
}

func (b BinaryClose) ToClose(symbol string) common.Close {
	return common.Close{
		Symbol:    symbol,
		TimeStamp: time.Unix(0, b.TimeStamp).UTC(),
		Price:     fixed.FromFloat64(b.Close),
	}
}

// WriteCloses appends records in the layout Source[BinaryClose] reads back.
func WriteCloses(w io.Writer, closes ...BinaryClose) error {
	for _, c := range closes {
		if err := binary.Write(w, binary.LittleEndian, c); err != nil {
			return fmt.Errorf("unable to write close at %d: %w", c.TimeStamp, err)
		}
	}
	return nil
}
