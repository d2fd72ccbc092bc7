package model

import (
	"sync"
	"sync/atomic"

	"github.com/cognicore/moodlens/pkg/moodlens/encode"
)

var (
	tensorPool = sync.Pool{New: func() any { return new(Tensor) }}
	live       atomic.Int64
)

// Tensor is a pooled float32 buffer with a shape. Every tensor obtained from
// NewTensor must be released exactly once; LiveTensors reports how many are
// outstanding.
type Tensor struct {
	shape    []int
	data     []float32
	released bool
}

// NewTensor returns a zeroed tensor of the given shape.
func NewTensor(shape ...int) *Tensor {
	size := 1
	for _, d := range shape {
		size *= d
	}

	t := tensorPool.Get().(*Tensor)
	if cap(t.data) < size {
		t.data = make([]float32, size)
	} else {
		t.data = t.data[:size]
		clear(t.data)
	}
	t.shape = append(t.shape[:0], shape...)
	t.released = false
	live.Add(1)
	return t
}

// FromSequence builds the 1×MaxSequenceLength model input for seq.
func FromSequence(seq encode.Sequence) *Tensor {
	t := NewTensor(1, encode.MaxSequenceLength)
	for i, idx := range seq {
		t.data[i] = float32(idx)
	}
	return t
}

// Data exposes the backing buffer. It must not be used after Release.
func (t *Tensor) Data() []float32 { return t.data }

// Shape returns the tensor dimensions.
func (t *Tensor) Shape() []int { return t.shape }

// Release returns the buffer to the pool. Releasing twice is a no-op.
func (t *Tensor) Release() {
	if t == nil || t.released {
		return
	}
	t.released = true
	live.Add(-1)
	tensorPool.Put(t)
}

// LiveTensors returns the number of tensors created but not yet released.
func LiveTensors() int64 {
	return live.Load()
}
