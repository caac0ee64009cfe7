package evcache

import (
	"errors"
	"fmt"
)

// ErrNilProducer is returned by Fetch when no producer is given.
var ErrNilProducer = errors.New("evcache: nil producer")

// KeyError reports a key that cannot be canonicalized.
type KeyError struct {
	Key any
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("evcache: invalid key %T: %v", e.Key, e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }

// PanicError is returned to every waiter of a Fetch whose producer panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("evcache: producer panicked: %v", e.Value)
}
