package fixed

import "fmt"

// RingBuffer is a fixed capacity FIFO window of points. Adding to a full
// buffer overwrites the oldest point. The running sum is maintained on every
// add, so Mean is O(1).
type RingBuffer struct {
	buffer   []Point
	capacity int
	size     int
	tail     int
	sum      Point
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		panic("capacity must be positive")
	}
	return &RingBuffer{
		buffer:   make([]Point, capacity),
		capacity: capacity,
		sum:      Zero,
	}
}

func (r *RingBuffer) Size() int     { return r.size }
func (r *RingBuffer) Capacity() int { return r.capacity }
func (r *RingBuffer) IsEmpty() bool { return r.size == 0 }
func (r *RingBuffer) IsFull() bool  { return r.size == r.capacity }

func (r *RingBuffer) Clear() {
	r.size = 0
	r.tail = 0
	r.sum = Zero
}

func (r *RingBuffer) Add(p Point) {
	if r.size == r.capacity {
		r.sum = r.sum.Sub(r.buffer[r.tail])
	} else {
		r.size++
	}
	r.buffer[r.tail] = p
	r.sum = r.sum.Add(p)
	r.tail = (r.tail + 1) % r.capacity
}

// Get returns the point idx positions back from the latest one.
func (r *RingBuffer) Get(idx int) Point {
	if idx < 0 || idx >= r.size {
		panic(fmt.Sprintf("index %d out of range [0, %d)", idx, r.size))
	}
	return r.buffer[(r.tail-1-idx+r.capacity)%r.capacity]
}

func (r *RingBuffer) Latest() Point {
	if r.size == 0 {
		panic("buffer is empty")
	}
	return r.Get(0)
}

func (r *RingBuffer) Oldest() Point {
	if r.size == 0 {
		panic("buffer is empty")
	}
	return r.Get(r.size - 1)
}

// ToSliceFifo returns the points oldest first.
func (r *RingBuffer) ToSliceFifo() []Point {
	if r.size == 0 {
		return nil
	}
	result := make([]Point, r.size)
	for i := 0; i < r.size; i++ {
		result[i] = r.Get(r.size - 1 - i)
	}
	return result
}

func (r *RingBuffer) Sum() Point {
	return r.sum
}

func (r *RingBuffer) Mean() Point {
	if r.size == 0 {
		return Zero
	}
	return r.sum.DivInt(r.size)
}

// StdDev is the population standard deviation of the buffered points.
func (r *RingBuffer) StdDev() Point {
	return StdDev(r.ToSliceFifo(), r.Mean())
}
