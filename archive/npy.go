package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// dtype codes this package understands, named the way spec.md §6 names
// them (NumPy little-endian type strings).
const (
	dtypeI4 = "<i4"
	dtypeU8 = "<u8"
	dtypeU4 = "<u4"
	dtypeU1 = "|u1"
	dtypeU2 = "<u2"
	dtypeI8 = "<i8"
	dtypeF8 = "<f8"
)

var npyMagic = []byte("\x93NUMPY")

var headerRE = regexp.MustCompile(`'descr':\s*'([^']+)'.*'fortran_order':\s*(True|False).*'shape':\s*\(([^)]*)\)`)

// writeNpy encodes a single array as a .npy v1.0 blob: magic, version,
// header dict (padded to a 64-byte boundary), then raw little-endian
// payload. This is a real, minimal NumPy array codec — not a generic
// pickle-compatible implementation — covering exactly the dtypes
// spec.md §6 requires.
func writeNpy(w io.Writer, dtype string, n int, payload []byte) error {
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%d,), }", dtype, n)
	// Total prefix length (magic[6] + ver[2] + headerLen[2] + header + '\n')
	// must be a multiple of 64.
	const prefix = 6 + 2 + 2
	total := prefix + len(header) + 1
	pad := (64 - total%64) % 64
	header = header + strings.Repeat(" ", pad) + "\n"

	if _, err := w.Write(npyMagic); err != nil {
		return err
	}
	if _, err := w.Write([]byte{1, 0}); err != nil {
		return err
	}
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(header)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte(header)); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// readNpy decodes a .npy v1.0/2.0 blob, returning its dtype string,
// element count, and raw payload bytes.
func readNpy(data []byte) (dtype string, n int, payload []byte, err error) {
	if len(data) < 10 || !bytes.Equal(data[:6], npyMagic) {
		return "", 0, nil, errors.New("archive: not a valid .npy blob (bad magic)")
	}
	major := data[6]
	var headerLen int
	var headerStart int
	switch major {
	case 1:
		headerLen = int(binary.LittleEndian.Uint16(data[8:10]))
		headerStart = 10
	case 2, 3:
		if len(data) < 12 {
			return "", 0, nil, errors.New("archive: truncated .npy v2+ header")
		}
		headerLen = int(binary.LittleEndian.Uint32(data[8:12]))
		headerStart = 12
	default:
		return "", 0, nil, errors.Errorf("archive: unsupported .npy version %d", major)
	}
	headerEnd := headerStart + headerLen
	if headerEnd > len(data) {
		return "", 0, nil, errors.New("archive: truncated .npy header")
	}
	header := string(data[headerStart:headerEnd])
	m := headerRE.FindStringSubmatch(header)
	if m == nil {
		return "", 0, nil, errors.Errorf("archive: unparseable .npy header %q", header)
	}
	dtype = m[1]
	if m[2] != "False" {
		return "", 0, nil, errors.New("archive: fortran_order arrays are not supported")
	}
	shapeStr := strings.TrimSpace(m[3])
	shapeStr = strings.TrimSuffix(shapeStr, ",")
	n = 0
	if shapeStr != "" {
		fields := strings.Split(shapeStr, ",")
		n = 1
		for _, f := range fields {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			v, perr := strconv.Atoi(f)
			if perr != nil {
				return "", 0, nil, errors.Wrapf(perr, "archive: bad shape field %q", f)
			}
			n *= v
		}
	}
	return dtype, n, data[headerEnd:], nil
}

func elemSize(dtype string) (int, error) {
	switch dtype {
	case dtypeI4, dtypeU4:
		return 4, nil
	case dtypeU8, dtypeI8, dtypeF8:
		return 8, nil
	case dtypeU1:
		return 1, nil
	case dtypeU2:
		return 2, nil
	default:
		return 0, errors.Errorf("archive: unsupported dtype %q", dtype)
	}
}

func encodeI32(v []int32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(x))
	}
	return buf
}

func decodeI32(b []byte, n int) ([]int32, error) {
	if len(b) < n*4 {
		return nil, errors.Errorf("archive: payload too short for %d int32 (have %d bytes)", n, len(b))
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

func encodeU64(v []uint64) []byte {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], x)
	}
	return buf
}

func decodeU64(b []byte, n int) ([]uint64, error) {
	if len(b) < n*8 {
		return nil, errors.Errorf("archive: payload too short for %d uint64 (have %d bytes)", n, len(b))
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
	return out, nil
}

func encodeU32(v []uint32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], x)
	}
	return buf
}

func decodeU32(b []byte, n int) ([]uint32, error) {
	if len(b) < n*4 {
		return nil, errors.Errorf("archive: payload too short for %d uint32 (have %d bytes)", n, len(b))
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out, nil
}

func encodeU8(v []uint8) []byte { return append([]byte(nil), v...) }

func decodeU8(b []byte, n int) ([]uint8, error) {
	if len(b) < n {
		return nil, errors.Errorf("archive: payload too short for %d uint8 (have %d bytes)", n, len(b))
	}
	return append([]byte(nil), b[:n]...), nil
}

func encodeU16(v []uint16) []byte {
	buf := make([]byte, 2*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint16(buf[i*2:], x)
	}
	return buf
}

func decodeU16(b []byte, n int) ([]uint16, error) {
	if len(b) < n*2 {
		return nil, errors.Errorf("archive: payload too short for %d uint16 (have %d bytes)", n, len(b))
	}
	out := make([]uint16, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return out, nil
}

func encodeI64(v []int64) []byte {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(x))
	}
	return buf
}

func decodeI64(b []byte, n int) ([]int64, error) {
	if len(b) < n*8 {
		return nil, errors.Errorf("archive: payload too short for %d int64 (have %d bytes)", n, len(b))
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return out, nil
}

func encodeF64(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(x))
	}
	return buf
}

func decodeF64(b []byte, n int) ([]float64, error) {
	if len(b) < n*8 {
		return nil, errors.Errorf("archive: payload too short for %d float64 (have %d bytes)", n, len(b))
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return out, nil
}
