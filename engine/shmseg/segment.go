package shmseg

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"
	"github.com/lattice-gfx/frameipc/engine/apperr"
)

// ErrSegmentUnavailable is returned when a segment cannot be created or
// opened (permission denied, already-exists on create, not-found on
// open).
var ErrSegmentUnavailable = apperr.New(apperr.SegmentUnavailable, "shmseg: segment unavailable")

const segmentMagic uint32 = 0x46524d49 // "FRMI"
const segmentVersion uint32 = 1
const headerSize = 16 // magic, version, kind, payload length, all uint32

// Dir is the directory segment-backing files are created under. It
// stands in for the original's OS-global shared-memory namespace: the
// file's base name is the segment name itself, making it directly
// observable the way a named shared-memory object is, with POSIX file
// permission bits standing in for the original's DACL.
var Dir = filepath.Join(os.TempDir(), "frameipc")

// header is the fixed struct written at offset 0 of every segment,
// analogous to the boost-interprocess managed_shared_memory segment
// header that precedes the named "seg-dat" object in the original
// (IntelPresentMon/Interprocess/source/Interprocess.cpp).
type header struct {
	Magic      uint32
	Version    uint32
	Kind       uint32
	PayloadLen uint32
}

func (h header) encode() []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.Kind)
	binary.LittleEndian.PutUint32(buf[12:16], h.PayloadLen)
	return buf
}

func decodeHeader(buf []byte) header {
	return header{
		Magic:      binary.LittleEndian.Uint32(buf[0:4]),
		Version:    binary.LittleEndian.Uint32(buf[4:8]),
		Kind:       binary.LittleEndian.Uint32(buf[8:12]),
		PayloadLen: binary.LittleEndian.Uint32(buf[12:16]),
	}
}

// Owning is a segment handle created by the service side. The backing
// file is removed when Close is called, matching "destroyed when the
// owning handle drops."
type Owning struct {
	name string
	file *os.File
	mm   mmap.MMap
	kind Kind
}

// Create creates a new segment named name of byteSize total bytes
// (header included), failing with ErrSegmentUnavailable if a segment of
// that name already exists or cannot be created.
func Create(name string, kind Kind, byteSize int) (*Owning, error) {
	if err := os.MkdirAll(Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSegmentUnavailable, err)
	}
	path := filepath.Join(Dir, name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSegmentUnavailable, err)
	}
	if err := f.Truncate(int64(byteSize)); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("%w: %v", ErrSegmentUnavailable, err)
	}
	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("%w: %v", ErrSegmentUnavailable, err)
	}
	h := header{Magic: segmentMagic, Version: segmentVersion, Kind: uint32(kind), PayloadLen: uint32(byteSize - headerSize)}
	copy(m, h.encode())
	return &Owning{name: name, file: f, mm: m, kind: kind}, nil
}

// Name returns the segment's OS-visible name.
func (o *Owning) Name() string { return o.name }

// Payload returns the mutable region following the segment header.
func (o *Owning) Payload() []byte { return o.mm[headerSize:] }

// Close unmaps and deletes the backing file.
func (o *Owning) Close() error {
	if err := o.mm.Unmap(); err != nil {
		return err
	}
	if err := o.file.Close(); err != nil {
		return err
	}
	return os.Remove(filepath.Join(Dir, o.name))
}

// Viewing is a read-only mapping over a segment created by an Owning
// handle elsewhere, opened by name.
type Viewing struct {
	name string
	file *os.File
	mm   mmap.MMap
	kind Kind
}

// Open opens an existing segment by name for read-only viewing, failing
// with ErrSegmentUnavailable if it cannot be found.
func Open(name string, wantKind Kind) (*Viewing, error) {
	path := filepath.Join(Dir, name)
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSegmentUnavailable, err)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrSegmentUnavailable, err)
	}
	if len(m) < headerSize {
		m.Unmap()
		f.Close()
		return nil, fmt.Errorf("%w: truncated segment", ErrSegmentUnavailable)
	}
	h := decodeHeader(m)
	if h.Magic != segmentMagic || Kind(h.Kind) != wantKind {
		m.Unmap()
		f.Close()
		return nil, fmt.Errorf("%w: header mismatch", ErrSegmentUnavailable)
	}
	return &Viewing{name: name, file: f, mm: m, kind: wantKind}, nil
}

// Name returns the segment's OS-visible name.
func (v *Viewing) Name() string { return v.name }

// Payload returns the read-only region following the segment header.
func (v *Viewing) Payload() []byte { return v.mm[headerSize:] }

// Close unmaps the view. It does not delete the backing file — only the
// owner does that.
func (v *Viewing) Close() error {
	if err := v.mm.Unmap(); err != nil {
		return err
	}
	return v.file.Close()
}
