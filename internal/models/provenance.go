package models

// Source classifies where an input value came from. Explicit values were
// supplied by the caller, inferred values were derived from other supplied
// data, defaults were filled in by the caller's tooling.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceInferred Source = "inferred"
	SourceDefault  Source = "default"
)

// rank orders sources by trust: lower is weaker.
func (s Source) rank() int {
	switch s {
	case SourceExplicit:
		return 2
	case SourceInferred:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the three known tags.
func (s Source) Valid() bool {
	switch s {
	case SourceExplicit, SourceInferred, SourceDefault:
		return true
	}
	return false
}

// WeakestSource folds a set of sources down to the least trusted one.
// An empty set folds to Explicit, the identity of the fold.
func WeakestSource(sources ...Source) Source {
	weakest := SourceExplicit
	for _, s := range sources {
		if s.rank() < weakest.rank() {
			weakest = s
		}
	}
	return weakest
}

// InputValue wraps a scalar with its provenance tag. The tag is fixed at
// construction; derived values are built with Derived so the weakest
// contributing tag is carried forward.
type InputValue[T any] struct {
	val T
	src Source
}

// Explicit tags a caller-supplied value.
func Explicit[T any](v T) InputValue[T] {
	return InputValue[T]{val: v, src: SourceExplicit}
}

// Inferred tags a value derived from other supplied data.
func Inferred[T any](v T) InputValue[T] {
	return InputValue[T]{val: v, src: SourceInferred}
}

// Default tags a value filled in from a default.
func Default[T any](v T) InputValue[T] {
	return InputValue[T]{val: v, src: SourceDefault}
}

// Tagged constructs an InputValue with an arbitrary valid tag.
func Tagged[T any](v T, src Source) InputValue[T] {
	if !src.Valid() {
		src = SourceDefault
	}
	return InputValue[T]{val: v, src: src}
}

// Derived constructs a value whose tag is the weakest of its inputs' tags.
func Derived[T any](v T, from ...Source) InputValue[T] {
	return InputValue[T]{val: v, src: WeakestSource(from...)}
}

// Value returns the wrapped scalar.
func (v InputValue[T]) Value() T { return v.val }

// Source returns the provenance tag.
func (v InputValue[T]) Source() Source { return v.src }
