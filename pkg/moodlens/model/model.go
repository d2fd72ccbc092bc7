// Package model holds the in-process scoring model: the artifact formats it
// is loaded from and the forward pass that turns an encoded entry into a
// positivity probability.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/cognicore/moodlens/pkg/moodlens/encode"
)

// Model scores a 1×MaxSequenceLength input tensor. The returned tensor's
// first element is the positivity probability in [0, 1]; the caller
// releases both tensors.
type Model interface {
	Predict(ctx context.Context, input *Tensor) (*Tensor, error)
	Close() error
}

// FormatEmbeddingBag identifies the JSON artifact understood by ParseModel.
const FormatEmbeddingBag = "moodlens-embedding-v1"

// ErrClosed is returned by Predict after Close.
var ErrClosed = errors.New("model closed")

type artifact struct {
	Format       string      `json:"format"`
	InputLength  int         `json:"input_length"`
	EmbeddingDim int         `json:"embedding_dim"`
	Embeddings   [][]float64 `json:"embeddings"`
	Weights      []float64   `json:"weights"`
	Bias         float64     `json:"bias"`
}

// EmbeddingBag averages the embeddings of the known tokens of an entry and
// feeds the mean through a single logistic unit. Row i of the embedding
// matrix belongs to token index i; row 0 is padding and never contributes.
type EmbeddingBag struct {
	mu         sync.RWMutex
	embeddings *mat.Dense
	weights    *mat.VecDense
	bias       float64
}

// NewEmbeddingBag builds a model from raw weights.
func NewEmbeddingBag(embeddings [][]float64, weights []float64, bias float64) (*EmbeddingBag, error) {
	dim := len(weights)
	if dim == 0 {
		return nil, fmt.Errorf("embedding dimension must be > 0")
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding table is empty")
	}

	flat := make([]float64, 0, len(embeddings)*dim)
	for i, row := range embeddings {
		if len(row) != dim {
			return nil, fmt.Errorf("embedding row %d has %d values, want %d", i, len(row), dim)
		}
		flat = append(flat, row...)
	}
	if !finite(flat) || !finite(weights) || !finite([]float64{bias}) {
		return nil, fmt.Errorf("model weights must be finite")
	}

	w := make([]float64, dim)
	copy(w, weights)
	return &EmbeddingBag{
		embeddings: mat.NewDense(len(embeddings), dim, flat),
		weights:    mat.NewVecDense(dim, w),
		bias:       bias,
	}, nil
}

// ParseModel decodes a FormatEmbeddingBag artifact.
func ParseModel(r io.Reader) (*EmbeddingBag, error) {
	var a artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if a.Format != FormatEmbeddingBag {
		return nil, fmt.Errorf("unsupported model format %q", a.Format)
	}
	if a.InputLength != 0 && a.InputLength != encode.MaxSequenceLength {
		return nil, fmt.Errorf("model expects input length %d, encoder produces %d", a.InputLength, encode.MaxSequenceLength)
	}
	if a.EmbeddingDim != 0 && a.EmbeddingDim != len(a.Weights) {
		return nil, fmt.Errorf("embedding_dim %d does not match %d weights", a.EmbeddingDim, len(a.Weights))
	}
	return NewEmbeddingBag(a.Embeddings, a.Weights, a.Bias)
}

// Predict implements Model.
func (m *EmbeddingBag) Predict(ctx context.Context, input *Tensor) (*Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shape := input.Shape()
	if len(shape) != 2 || shape[0] != 1 || shape[1] != encode.MaxSequenceLength {
		return nil, fmt.Errorf("input shape %v, want [1 %d]", shape, encode.MaxSequenceLength)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.embeddings == nil {
		return nil, ErrClosed
	}

	rows, dim := m.embeddings.Dims()
	mean := mat.NewVecDense(dim, nil)
	count := 0
	for _, v := range input.Data() {
		idx := int(v)
		if idx <= 0 || idx >= rows {
			continue
		}
		mean.AddVec(mean, m.embeddings.RowView(idx))
		count++
	}
	if count > 0 {
		mean.ScaleVec(1/float64(count), mean)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := NewTensor(1, 1)
	out.Data()[0] = float32(sigmoid(mat.Dot(m.weights, mean) + m.bias))
	return out, nil
}

// Close drops the weights. Later Predict calls return ErrClosed.
func (m *EmbeddingBag) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeddings = nil
	m.weights = nil
	return nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func finite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
