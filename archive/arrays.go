package archive

import "github.com/pkg/errors"

// Reader is the typed, read-only view over a Container's named arrays
// that the piece, compat, and snapshot packages are written against —
// spec.md §1 treats the concrete archive format as an external
// collaborator; this interface is the seam.
type Reader interface {
	Has(name string) bool
	ReadI32(name string) ([]int32, error)
	ReadU64(name string) ([]uint64, error)
	ReadU32(name string) ([]uint32, error)
	ReadU8(name string) ([]uint8, error)
	ReadU16(name string) ([]uint16, error)
	ReadI64(name string) ([]int64, error)
	ReadF64(name string) ([]float64, error)
}

func (c *Container) array(name string) ([]byte, int, string, error) {
	blob, ok := c.blob(name)
	if !ok {
		return nil, 0, "", errors.Errorf("archive: member %q not found", name)
	}
	dtype, n, payload, err := readNpy(blob)
	if err != nil {
		return nil, 0, "", errors.Wrapf(err, "archive: member %q", name)
	}
	return payload, n, dtype, nil
}

func checkDtype(name, got string, want ...string) error {
	for _, w := range want {
		if got == w {
			return nil
		}
	}
	return errors.Errorf("archive: member %q has dtype %q, want one of %v", name, got, want)
}

// ReadI32 reads a little-endian int32 array.
func (c *Container) ReadI32(name string) ([]int32, error) {
	payload, n, dtype, err := c.array(name)
	if err != nil {
		return nil, err
	}
	if err := checkDtype(name, dtype, dtypeI4); err != nil {
		return nil, err
	}
	return decodeI32(payload, n)
}

// ReadU64 reads a little-endian uint64 array.
func (c *Container) ReadU64(name string) ([]uint64, error) {
	payload, n, dtype, err := c.array(name)
	if err != nil {
		return nil, err
	}
	if err := checkDtype(name, dtype, dtypeU8); err != nil {
		return nil, err
	}
	return decodeU64(payload, n)
}

// ReadU32 reads a little-endian uint32 array.
func (c *Container) ReadU32(name string) ([]uint32, error) {
	payload, n, dtype, err := c.array(name)
	if err != nil {
		return nil, err
	}
	if err := checkDtype(name, dtype, dtypeU4); err != nil {
		return nil, err
	}
	return decodeU32(payload, n)
}

// ReadU8 reads a uint8 array.
func (c *Container) ReadU8(name string) ([]uint8, error) {
	payload, n, dtype, err := c.array(name)
	if err != nil {
		return nil, err
	}
	if err := checkDtype(name, dtype, dtypeU1); err != nil {
		return nil, err
	}
	return decodeU8(payload, n)
}

// ReadU16 reads a little-endian uint16 array.
func (c *Container) ReadU16(name string) ([]uint16, error) {
	payload, n, dtype, err := c.array(name)
	if err != nil {
		return nil, err
	}
	if err := checkDtype(name, dtype, dtypeU2); err != nil {
		return nil, err
	}
	return decodeU16(payload, n)
}

// ReadI64 reads a little-endian int64 array.
func (c *Container) ReadI64(name string) ([]int64, error) {
	payload, n, dtype, err := c.array(name)
	if err != nil {
		return nil, err
	}
	if err := checkDtype(name, dtype, dtypeI8); err != nil {
		return nil, err
	}
	return decodeI64(payload, n)
}

// ReadF64 reads a little-endian float64 array.
func (c *Container) ReadF64(name string) ([]float64, error) {
	payload, n, dtype, err := c.array(name)
	if err != nil {
		return nil, err
	}
	if err := checkDtype(name, dtype, dtypeF8); err != nil {
		return nil, err
	}
	return decodeF64(payload, n)
}
