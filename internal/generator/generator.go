package generator

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces a new value on every call to Next.
type Generator[T any] interface {
	Next() (T, error)
}

// UUIDV7Generator produces time-ordered UUIDv7 strings, so identifiers sort
// in the order they were handed out.
type UUIDV7Generator struct{}

func (g *UUIDV7Generator) Next() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

var _ Generator[string] = &UUIDV7Generator{}

// SequenceGenerator produces "prefix-1", "prefix-2", ... and is safe for
// concurrent use.
type SequenceGenerator struct {
	Prefix  string
	counter atomic.Uint64
}

func (g *SequenceGenerator) Next() (string, error) {
	n := g.counter.Add(1)
	return g.Prefix + "-" + strconv.FormatUint(n, 10), nil
}

var _ Generator[string] = &SequenceGenerator{}
