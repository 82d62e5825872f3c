package archive

import (
	"archive/zip"
	"bytes"
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// Builder accumulates named arrays and writes them out as a single
// manifest-checked zip container, the mirror image of Open/Container.
type Builder struct {
	npy map[string][]byte // name -> encoded .npy blob
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{npy: map[string][]byte{}}
}

func (b *Builder) put(name, dtype string, n int, payload []byte) {
	var buf bytes.Buffer
	// writeNpy never returns an error for an in-memory bytes.Buffer sink.
	_ = writeNpy(&buf, dtype, n, payload)
	b.npy[name] = buf.Bytes()
}

// WriteI32 stores name as a little-endian int32 array.
func (b *Builder) WriteI32(name string, v []int32) { b.put(name, dtypeI4, len(v), encodeI32(v)) }

// WriteU64 stores name as a little-endian uint64 array.
func (b *Builder) WriteU64(name string, v []uint64) { b.put(name, dtypeU8, len(v), encodeU64(v)) }

// WriteU32 stores name as a little-endian uint32 array.
func (b *Builder) WriteU32(name string, v []uint32) { b.put(name, dtypeU4, len(v), encodeU32(v)) }

// WriteU8 stores name as a uint8 array.
func (b *Builder) WriteU8(name string, v []uint8) { b.put(name, dtypeU1, len(v), encodeU8(v)) }

// WriteU16 stores name as a little-endian uint16 array.
func (b *Builder) WriteU16(name string, v []uint16) { b.put(name, dtypeU2, len(v), encodeU16(v)) }

// WriteI64 stores name as a little-endian int64 array.
func (b *Builder) WriteI64(name string, v []int64) { b.put(name, dtypeI8, len(v), encodeI64(v)) }

// WriteF64 stores name as a little-endian float64 array.
func (b *Builder) WriteF64(name string, v []float64) { b.put(name, dtypeF8, len(v), encodeF64(v)) }

// Save writes the accumulated members to path (any
// github.com/grailbio/base/file scheme), including the manifest digest.
func (b *Builder) Save(ctx context.Context, path string) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, blob := range b.npy {
		payload := encodePayload(blob)
		method := deflateMethod
		if payload[0] == payloadSnappy {
			method = zip.Store // already compressed; do not deflate again
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			return errors.E(err, "archive: creating member", name)
		}
		if _, err := w.Write(payload); err != nil {
			return errors.E(err, "archive: writing member", name)
		}
	}
	mw, err := zw.CreateHeader(&zip.FileHeader{Name: manifestMember, Method: zip.Store})
	if err != nil {
		return errors.E(err, "archive: creating manifest member")
	}
	// Hash the same representation Open reconstructs into c.members: the
	// full .npy blob (header + payload), per member.
	if _, err := mw.Write(manifestDigest(b.npy)); err != nil {
		return errors.E(err, "archive: writing manifest member")
	}
	if err := zw.Close(); err != nil {
		return errors.E(err, "archive: closing zip writer")
	}

	f, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "archive: creating", path)
	}
	if _, err := f.Writer(ctx).Write(buf.Bytes()); err != nil {
		f.Close(ctx) // nolint: errcheck
		return errors.E(err, "archive: writing", path)
	}
	if err := f.Close(ctx); err != nil {
		return errors.E(err, "archive: closing", path)
	}
	return nil
}
