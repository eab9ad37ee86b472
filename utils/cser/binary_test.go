package cser

import (
	"math"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/stretchr/testify/require"
)

func TestEmpty(t *testing.T) {
	buf, err := MarshalBinaryAdapter(func(w *Writer) error {
		return nil
	})
	require.NoError(t, err)

	err = UnmarshalBinaryAdapter(buf, func(r *Reader) error {
		return nil
	})
	require.NoError(t, err)
}

func TestVals(t *testing.T) {
	require := require.New(t)

	h := hash.Of([]byte("in value"))
	buf, err := MarshalBinaryAdapter(func(w *Writer) error {
		w.Bool(true)
		w.U8(0xfe)
		w.U16(0)
		w.U16(math.MaxUint16)
		w.U32(7)
		w.U32(math.MaxUint32)
		w.U64(0)
		w.U64(math.MaxUint64)
		w.U56(0)
		w.U56(1 << 40)
		w.I64(-5)
		w.I64(math.MaxInt64)
		w.SliceBytes([]byte("tiny"))
		w.String("04abcdef")
		w.Hash(hash.Hash{})
		w.Hash(h)
		return nil
	})
	require.NoError(err)

	err = UnmarshalBinaryAdapter(buf, func(r *Reader) error {
		require.True(r.Bool())
		require.Equal(uint8(0xfe), r.U8())
		require.Equal(uint16(0), r.U16())
		require.Equal(uint16(math.MaxUint16), r.U16())
		require.Equal(uint32(7), r.U32())
		require.Equal(uint32(math.MaxUint32), r.U32())
		require.Equal(uint64(0), r.U64())
		require.Equal(uint64(math.MaxUint64), r.U64())
		require.Equal(uint64(0), r.U56())
		require.Equal(uint64(1<<40), r.U56())
		require.Equal(int64(-5), r.I64())
		require.Equal(int64(math.MaxInt64), r.I64())
		require.Equal([]byte("tiny"), r.SliceBytes(MaxAlloc))
		require.Equal("04abcdef", r.String(MaxAlloc))
		require.Equal(hash.Hash{}, r.Hash())
		require.Equal(h, r.Hash())
		return nil
	})
	require.NoError(err)
}

func TestErr(t *testing.T) {
	buf, err := MarshalBinaryAdapter(func(w *Writer) error {
		w.U64(math.MaxUint64)
		return nil
	})
	require.NoError(t, err)

	t.Run("not consumed", func(t *testing.T) {
		err := UnmarshalBinaryAdapter(buf, func(r *Reader) error {
			r.U8()
			return nil
		})
		require.Equal(t, ErrNonCanonicalEncoding, err)
	})

	t.Run("overread", func(t *testing.T) {
		err := UnmarshalBinaryAdapter(buf, func(r *Reader) error {
			r.U64()
			r.U64()
			return nil
		})
		require.Equal(t, ErrMalformedEncoding, err)
	})

	t.Run("empty input", func(t *testing.T) {
		err := UnmarshalBinaryAdapter(nil, func(r *Reader) error {
			return nil
		})
		require.Equal(t, ErrMalformedEncoding, err)
	})

	t.Run("callback error", func(t *testing.T) {
		custom := ErrTooLargeAlloc
		_, err := MarshalBinaryAdapter(func(w *Writer) error {
			return custom
		})
		require.Equal(t, custom, err)
	})
}

func TestNonCanonicalInteger(t *testing.T) {
	// 1 padded to two bytes: [0x01 0x00] with size offset 1 in the bit stream.
	w := NewWriter()
	w.bytes = append(w.bytes, 0x01, 0x00)
	w.bits.write(3, 1)
	raw := append(append(append([]byte{}, w.bytes...), w.bits.buf...), reversed(sizeVarint(uint64(len(w.bits.buf))))...)

	err := UnmarshalBinaryAdapter(raw, func(r *Reader) error {
		r.U64()
		return nil
	})
	require.Equal(t, ErrNonCanonicalEncoding, err)
}

func TestAllocLimit(t *testing.T) {
	buf, err := MarshalBinaryAdapter(func(w *Writer) error {
		w.SliceBytes(make([]byte, 100))
		return nil
	})
	require.NoError(t, err)

	err = UnmarshalBinaryAdapter(buf, func(r *Reader) error {
		r.SliceBytes(99)
		return nil
	})
	require.Equal(t, ErrTooLargeAlloc, err)
}

func TestBitStream(t *testing.T) {
	w := &bitWriter{}
	widths := []int{1, 3, 7, 8, 9, 17, 2}
	vals := []uint{1, 5, 100, 255, 300, 70000, 2}
	for i := range widths {
		w.write(widths[i], vals[i])
	}

	r := &bitReader{buf: w.buf}
	for i := range widths {
		require.Equal(t, vals[i], r.read(widths[i]), "value %d", i)
	}
	require.Equal(t, 8-(1+3+7+8+9+17+2)%8, r.unreadBits()%8)
}
