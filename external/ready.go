package external

import (
	"bytes"
	"io"

	"github.com/ProtonMail/sop-external/internal/process"
)

// ErrAlreadyMaterialized is returned when a Ready is materialized twice.
var ErrAlreadyMaterialized = process.ErrAlreadyMaterialized

// Ready is the deferred output of an operation. Nothing runs until WriteTo
// or Bytes is called, and only one of them may be called once.
type Ready struct {
	ready *process.Ready
}

// WriteTo spawns the backend and copies its output to w.
func (r *Ready) WriteTo(w io.Writer) (int64, error) {
	return r.ready.WriteTo(w)
}

// Bytes spawns the backend and returns its output.
func (r *Ready) Bytes() ([]byte, error) {
	return r.ready.Bytes()
}

// Argv returns the arguments the backend will be started with, without
// the executable and without side output flags.
func (r *Ready) Argv() []string {
	return r.ready.Descriptor().Argv()
}

// ReadyWithResult is a Ready whose operation also reports a result, read
// from side outputs once the backend exited successfully.
type ReadyWithResult[T any] struct {
	ready  *process.Ready
	result func(*process.Ready) (T, error)
}

// WriteTo spawns the backend, copies its output to w and returns the
// operation result.
func (r *ReadyWithResult[T]) WriteTo(w io.Writer) (T, error) {
	if _, err := r.ready.WriteTo(w); err != nil {
		var zero T
		return zero, err
	}
	return r.result(r.ready)
}

// Bytes is WriteTo into memory.
func (r *ReadyWithResult[T]) Bytes() ([]byte, T, error) {
	var buf bytes.Buffer
	res, err := r.WriteTo(&buf)
	if err != nil {
		return nil, res, err
	}
	return buf.Bytes(), res, nil
}

// Argv returns the arguments the backend will be started with, without
// the executable and without side output flags.
func (r *ReadyWithResult[T]) Argv() []string {
	return r.ready.Descriptor().Argv()
}
