// Package ids provides the transaction and order id sequences handed to the
// engines. Generators are injected, never global, so tests and restored
// sessions control the sequence start.
package ids

// Generator yields unique int64 ids. Implementations need not be safe for
// concurrent use; the engines are single-writer.
type Generator interface {
	NextID() int64
}

type incremental struct {
	next int64
}

// NewIncremental returns a Generator counting up from start+1.
func NewIncremental(start int64) Generator {
	return &incremental{next: start}
}

func (g *incremental) NextID() int64 {
	g.next++
	return g.next
}
