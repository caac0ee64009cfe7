// Package keys turns lookup keys into stable map keys.
//
//	string key         -> "s:" + key
//	anything else      -> "c:" + deterministic CBOR bytes
//
// CBOR keeps type information ("1" and 1 differ) and deterministic mode sorts
// map keys, so structurally equal keys always canonicalize identically.
package keys

import (
	"github.com/unkn0wn-root/evcache/codec"
)

var structured = codec.MustCBOR[any](true)

// Canonical returns the canonical form of key. It fails only for values CBOR
// cannot encode (channels, funcs, cyclic data).
func Canonical(key any) (string, error) {
	if s, ok := key.(string); ok {
		return "s:" + s, nil
	}
	b, err := structured.Encode(key)
	if err != nil {
		return "", err
	}
	return "c:" + string(b), nil
}
