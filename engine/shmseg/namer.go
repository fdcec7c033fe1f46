package shmseg

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Kind is the segment role, determining its name suffix.
type Kind int

const (
	KindIntrospection Kind = iota
	KindSystem
	KindGPU
	KindFrame
)

// Namer constructs deterministic segment names from {prefix, salt, kind,
// key}, per §6.1: "{prefix}_{salt}_{kind}[_{key}]".
type Namer struct {
	Prefix string
	Salt   string
}

// NewNamer returns a Namer for prefix. If salt is empty, an 8-hex-digit
// random salt is generated, matching "caller-provided or an 8-hex-digit
// random value."
func NewNamer(prefix, salt string) (Namer, error) {
	if salt == "" {
		var buf [4]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return Namer{}, fmt.Errorf("shmseg: generate salt: %w", err)
		}
		salt = hex.EncodeToString(buf[:])
	}
	return Namer{Prefix: prefix, Salt: salt}, nil
}

// Introspection returns the introspection segment name.
func (n Namer) Introspection() string { return fmt.Sprintf("%s_%s_int", n.Prefix, n.Salt) }

// System returns the system telemetry segment name.
func (n Namer) System() string { return fmt.Sprintf("%s_%s_sys", n.Prefix, n.Salt) }

// GPU returns the GPU telemetry segment name for deviceID.
func (n Namer) GPU(deviceID int) string { return fmt.Sprintf("%s_%s_gpu_%d", n.Prefix, n.Salt, deviceID) }

// Frame returns the frame segment name for the target pid.
func (n Namer) Frame(pid int) string { return fmt.Sprintf("%s_%s_tgt_%d", n.Prefix, n.Salt, pid) }

// Name dispatches to the right constructor by kind and key, for callers
// that only have a Kind value (e.g. generic registries).
func (n Namer) Name(kind Kind, key int) string {
	switch kind {
	case KindIntrospection:
		return n.Introspection()
	case KindSystem:
		return n.System()
	case KindGPU:
		return n.GPU(key)
	default:
		return n.Frame(key)
	}
}
