package iterable

// buffer is the shared bookkeeping of both wrapper variants.
//
// log holds every value ever produced by the source, in order, and is never
// rewritten. pos is the position of the default cursor used by Next; the
// results at log[pos:] are produced but not yet consumed by it. done is set
// once the source reports exhaustion and is never cleared.
type buffer[T any] struct {
	log  []T
	pos  int
	done bool
}

// at returns the result at index i, or false if the source has to be
// advanced before that index is known.
func (b *buffer[T]) at(i int) (Result[T], bool) {
	if i < len(b.log) {
		return Value(b.log[i]), true
	}
	if b.done {
		return Exhausted[T](), true
	}
	return Result[T]{}, false
}

// pop consumes the oldest pending result of the default cursor.
func (b *buffer[T]) pop() (Result[T], bool) {
	r, ok := b.at(b.pos)
	if ok && !r.Done {
		b.pos++
	}
	return r, ok
}

// empty reports whether the default cursor has nothing pending and the
// source may still produce.
func (b *buffer[T]) empty() bool {
	return b.pos == len(b.log) && !b.done
}

// record appends a freshly produced result.
func (b *buffer[T]) record(r Result[T]) {
	if r.Done {
		b.done = true
		return
	}
	b.log = append(b.log, r.Value)
}

func (b *buffer[T]) pending() int {
	return len(b.log) - b.pos
}
