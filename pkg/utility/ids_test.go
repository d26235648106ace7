package utility

import (
	"sync"
	"testing"
	"time"
)

func TestUtility_GetExecutionID(t *testing.T) {
	id1 := GetExecutionID()
	id2 := GetExecutionID()

	if id1 != id2 {
		t.Error("Expected same ExecutionID")
	}
	if id1.Version() != 7 {
		t.Errorf("Expected UUID v7, got v%d", id1.Version())
	}
}

func TestUtility_ResetExecutionID(t *testing.T) {
	oldID := GetExecutionID()
	newID := ResetExecutionID()

	if oldID == newID {
		t.Error("ResetExecutionID didn't change ID")
	}
	if GetExecutionID() != newID {
		t.Error("GetExecutionID doesn't return new ID")
	}
}

func TestUtility_CreateTraceIDMonotonic(t *testing.T) {
	prev := CreateTraceID()
	for i := 0; i < 50000; i++ {
		next := CreateTraceID()
		if next <= prev {
			t.Fatalf("trace id went backwards: %d after %d", next, prev)
		}
		prev = next
	}
}

func TestUtility_CreateTraceIDConcurrent(t *testing.T) {
	const goroutines = 50
	const idsPerGoroutine = 1000

	ids := make(chan TraceID, goroutines*idsPerGoroutine)
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < idsPerGoroutine; j++ {
				ids <- CreateTraceID()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[TraceID]struct{}, goroutines*idsPerGoroutine)
	for id := range ids {
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate trace id %d", id)
		}
		seen[id] = struct{}{}
	}
}

func TestUtility_ParseTraceID(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := CreateTraceID()

	ts, machine, _ := ParseTraceID(id)
	if machine != machineID {
		t.Errorf("machine = %d; want %d", machine, machineID)
	}
	if ts.Before(before) || ts.After(time.Now().Add(time.Minute)) {
		t.Errorf("timestamp %v is not close to now", ts)
	}
}
