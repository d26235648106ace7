package utility

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ExecutionID identifies one run of the engine. Every event produced during the
// run carries it, so a backtest or a live session can be filtered in the logs.
type ExecutionID = uuid.UUID

// TraceID is a time ordered 64-bit id: 41 bits of milliseconds since traceEpoch,
// 10 bits of machine id and 13 bits of sequence.
type TraceID = uint64

const (
	machineBits  = 10
	sequenceBits = 13

	maxSequence = 1<<sequenceBits - 1
	maxMachine  = 1<<machineBits - 1

	timestampShift = machineBits + sequenceBits
	machineShift   = sequenceBits
)

var (
	executionID   ExecutionID
	executionOnce sync.Once
	executionMu   sync.RWMutex

	lastTraceID atomic.Uint64
	machineID   = uint64(uuid.New().ID()) & maxMachine
	traceEpoch  = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
)

func GetExecutionID() ExecutionID {
	executionOnce.Do(func() {
		executionMu.Lock()
		executionID = uuid.Must(uuid.NewV7())
		executionMu.Unlock()
	})

	executionMu.RLock()
	defer executionMu.RUnlock()
	return executionID
}

func ResetExecutionID() ExecutionID {
	executionOnce.Do(func() {})

	executionMu.Lock()
	defer executionMu.Unlock()

	executionID = uuid.Must(uuid.NewV7())
	return executionID
}

// CreateTraceID returns a strictly increasing id. When the sequence space of the
// current millisecond is exhausted it borrows from the next millisecond instead
// of sleeping.
func CreateTraceID() TraceID {
	for {
		last := lastTraceID.Load()
		next := composeTraceID(uint64(time.Now().UnixMilli()-traceEpoch), 0)

		if next <= last {
			seq := last & maxSequence
			if seq == maxSequence {
				next = composeTraceID((last>>timestampShift)+1, 0)
			} else {
				next = last + 1
			}
		}

		if lastTraceID.CompareAndSwap(last, next) {
			return next
		}
	}
}

func ParseTraceID(id TraceID) (timestamp time.Time, machine uint64, seq uint64) {
	seq = id & maxSequence
	machine = (id >> machineShift) & maxMachine
	timestamp = time.UnixMilli(traceEpoch + int64(id>>timestampShift))
	return
}

func composeTraceID(millis uint64, seq uint64) TraceID {
	return (millis << timestampShift) | (machineID << machineShift) | seq
}
