package introspection

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// CloneToFlatBuffer walks root with a probe pass to size the output,
// then re-walks it into a buffer of exactly that size — the Go
// realization of "probe allocator computes the required flat size, then
// re-walks with a bump allocator of exactly that size" from §4.6. gob
// is used as the flattening codec since both passes are in-process; the
// resulting bytes are what crosses into a client's address space as an
// opaque clone.
func CloneToFlatBuffer(root Root) ([]byte, error) {
	var probe bytes.Buffer
	if err := gob.NewEncoder(&probe).Encode(root); err != nil {
		return nil, fmt.Errorf("introspection: probe encode: %w", err)
	}
	flat := make([]byte, 0, probe.Len())
	buf := bytes.NewBuffer(flat)
	if err := gob.NewEncoder(buf).Encode(root); err != nil {
		return nil, fmt.Errorf("introspection: flatten encode: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeFlatBuffer reconstructs a Root from bytes produced by
// CloneToFlatBuffer. This is what a middleware client calls after
// receiving the clone.
func DecodeFlatBuffer(flat []byte) (Root, error) {
	var root Root
	if err := gob.NewDecoder(bytes.NewReader(flat)).Decode(&root); err != nil {
		return Root{}, fmt.Errorf("introspection: decode clone: %w", err)
	}
	return root, nil
}
