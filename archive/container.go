// Package archive implements the external-interface container format of
// spec.md §6: an npz-style zip of named .npy arrays, used for both the
// input piece-library archive and the bucket snapshot archive. The
// container format itself (zip-of-named-arrays) is the out-of-scope
// "on-disk archive format" of spec.md §1 — this package is the concrete
// implementation the core's Library/Snapshot loaders are written against.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"io/ioutil"
	"sort"
	"sync"

	"github.com/blainsmith/seahash"
	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/flate"
	"github.com/minio/highwayhash"
)

// deflateMethod is the zip compression method ID we register a faster
// deflate implementation under, matching the stdlib "Deflate" method so
// existing archives remain readable even without our compressor
// registered (zip.RegisterDecompressor then falls back to stdlib flate
// only if ours isn't registered; here we always register both ends).
const deflateMethod = zip.Deflate

// payloadRaw/payloadSnappy are the one-byte tags marking a member payload
// as raw or snappy-framed; see encodePayload/decodePayload.
const (
	payloadRaw    byte = 0
	payloadSnappy byte = 1
	// snappyThreshold is the .npy blob size at or above which a member (in
	// practice bulk arrays such as bucket row data) is snappy-compressed
	// and stored without deflate, avoiding
	// double-compression against the zip member's own deflate stream —
	// the same tradeoff cmd/bio-bam-sort/sorter/sortshard.go documents
	// for its own snappy-vs-flate choice.
	snappyThreshold = 64 * 1024
)

func init() {
	zip.RegisterCompressor(deflateMethod, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
	zip.RegisterDecompressor(deflateMethod, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
}

// highwaySeedKey is the fixed zero key used for the manifest digest, the
// same zero-seed convention fusion/postprocess.go's
// groupCandidatesByGenePair uses for structural (non-adversarial)
// hashing: we want collision-resistant bookkeeping, not a keyed MAC.
var highwaySeedKey = make([]byte, highwayhash.Size)

// Container is an open archive: a set of named byte-array members backed
// by a zip file, read fully into memory on Open (these archives hold a
// piece library or a bucket snapshot, both bounded by N<=10's
// combinatorics, never streaming-large).
type Container struct {
	mu      sync.Mutex
	members map[string][]byte // name -> raw .npy blob (post-decompress)
}

// Open reads path (any github.com/grailbio/base/file scheme: local,
// s3://, gs://, ...) as a Container, verifying the manifest checksum.
func Open(ctx context.Context, path string) (*Container, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "archive: opening", path)
	}
	defer func() {
		if cerr := f.Close(ctx); cerr != nil {
			log.Error.Printf("archive: close %s: %v", path, cerr)
		}
	}()
	data, err := ioutil.ReadAll(f.Reader(ctx))
	if err != nil {
		return nil, errors.E(err, "archive: reading", path)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.E(err, "archive: not a valid zip container", path)
	}
	c := &Container{members: make(map[string][]byte, len(zr.File))}
	var manifestDigest []byte
	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			return nil, errors.E(err, "archive: opening member", zf.Name, "in", path)
		}
		raw, err := ioutil.ReadAll(rc)
		rc.Close() // nolint: errcheck
		if err != nil {
			return nil, errors.E(err, "archive: reading member", zf.Name, "in", path)
		}
		if zf.Name == manifestMember {
			manifestDigest = raw
			continue
		}
		payload, err := decodePayload(raw)
		if err != nil {
			return nil, errors.E(err, "archive: decoding member", zf.Name, "in", path)
		}
		c.members[zf.Name] = payload
	}
	if manifestDigest != nil {
		if err := verifyManifest(c.members, manifestDigest); err != nil {
			return nil, errors.E(err, "archive: manifest checksum mismatch in", path)
		}
	}
	return c, nil
}

// Has reports whether name is present in the container.
func (c *Container) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.members[name]
	return ok
}

func (c *Container) blob(name string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.members[name]
	return b, ok
}

const manifestMember = "manifest.sha"

// encodePayload prefixes raw with a one-byte tag indicating whether it
// was snappy-compressed, per the bulk-payload policy above.
func encodePayload(raw []byte) []byte {
	if len(raw) < snappyThreshold {
		return append([]byte{payloadRaw}, raw...)
	}
	compressed := snappy.Encode(nil, raw)
	return append([]byte{payloadSnappy}, compressed...)
}

func decodePayload(tagged []byte) ([]byte, error) {
	if len(tagged) == 0 {
		return nil, errors.New("archive: empty member payload")
	}
	tag, body := tagged[0], tagged[1:]
	switch tag {
	case payloadRaw:
		return body, nil
	case payloadSnappy:
		return snappy.Decode(nil, body)
	default:
		return nil, errors.E("archive: unknown payload tag", int(tag))
	}
}

// memberChecksum returns the seahash checksum of a member's full .npy
// blob (header + payload, after payload decompression), matching the hash function
// encoding/bamprovider/concurrentmap.go uses for its sharded map.
func memberChecksum(raw []byte) uint64 {
	return seahash.Sum64(raw)
}

// manifestDigest computes the archive-wide highwayhash digest over the
// sorted member names and their seahash checksums.
func manifestDigest(members map[string][]byte) []byte {
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)
	h, err := highwayhash.New(highwaySeedKey)
	if err != nil {
		// highwayhash.New only fails on a wrong-length key; the zero key
		// above is always the right length.
		log.Panicf("archive: highwayhash.New: %v", err)
	}
	for _, name := range names {
		h.Write([]byte(name))          // nolint: errcheck
		var sumBuf [8]byte
		binary.LittleEndian.PutUint64(sumBuf[:], memberChecksum(members[name]))
		h.Write(sumBuf[:]) // nolint: errcheck
	}
	return h.Sum(nil)
}

func verifyManifest(members map[string][]byte, want []byte) error {
	got := manifestDigest(members)
	if !bytes.Equal(got, want) {
		return errors.E("archive: manifest digest mismatch", "want", want, "got", got)
	}
	return nil
}
