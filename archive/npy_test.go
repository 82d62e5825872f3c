package archive

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadNpyRoundTrip(t *testing.T) {
	cases := []struct {
		dtype   string
		n       int
		payload []byte
	}{
		{dtypeI4, 3, encodeI32([]int32{-1, 0, 7})},
		{dtypeU8, 2, encodeU64([]uint64{1, 1 << 40})},
		{dtypeU1, 5, encodeU8([]uint8{1, 2, 3, 4, 5})},
		{dtypeF8, 2, encodeF64([]float64{1.5, -2.25})},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		require.NoError(t, writeNpy(&buf, c.dtype, c.n, c.payload))
		assert.Zero(t, (buf.Len()-len(c.payload))%64, "npy header prefix should end on a 64-byte boundary")

		dtype, n, payload, err := readNpy(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, c.dtype, dtype)
		assert.Equal(t, c.n, n)
		assert.Equal(t, c.payload, payload)
	}
}

func TestReadNpyRejectsBadMagic(t *testing.T) {
	_, _, _, err := readNpy([]byte("not an npy file at all"))
	assert.Error(t, err)
}

func TestReadNpyRejectsFortranOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeNpy(&buf, dtypeI4, 1, encodeI32([]int32{1})))
	data := buf.Bytes()
	fixed := bytes.Replace(data, []byte("False"), []byte("True "), 1)
	_, _, _, err := readNpy(fixed)
	assert.Error(t, err)
}

func TestEncodeDecodeScalarTypes(t *testing.T) {
	i32 := []int32{-5, 0, 5}
	gotI32, err := decodeI32(encodeI32(i32), len(i32))
	require.NoError(t, err)
	assert.Equal(t, i32, gotI32)

	u32 := []uint32{0, 1, 1 << 31}
	gotU32, err := decodeU32(encodeU32(u32), len(u32))
	require.NoError(t, err)
	assert.Equal(t, u32, gotU32)

	u16 := []uint16{0, 1, 65535}
	gotU16, err := decodeU16(encodeU16(u16), len(u16))
	require.NoError(t, err)
	assert.Equal(t, u16, gotU16)

	i64 := []int64{-1, 1 << 40}
	gotI64, err := decodeI64(encodeI64(i64), len(i64))
	require.NoError(t, err)
	assert.Equal(t, i64, gotI64)
}

func TestDecodeRejectsShortPayload(t *testing.T) {
	_, err := decodeI32([]byte{1, 2, 3}, 1)
	assert.Error(t, err)
}
