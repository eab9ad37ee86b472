package cser

import (
	"errors"

	"github.com/Fantom-foundation/lachesis-base/hash"
)

var (
	ErrNonCanonicalEncoding = errors.New("non canonical encoding")
	ErrMalformedEncoding    = errors.New("malformed encoding")
	ErrTooLargeAlloc        = errors.New("too large allocation")
)

// MaxAlloc bounds every length prefix read from untrusted input.
const MaxAlloc = 100 * 1024

// Writer splits the output into a bit stream, holding flags and integer
// sizes, and a byte stream, holding the payload.
type Writer struct {
	bits  bitWriter
	bytes []byte
}

type Reader struct {
	bits  bitReader
	bytes byteReader
}

func NewWriter() *Writer {
	return &Writer{
		bits:  bitWriter{buf: make([]byte, 0, 16)},
		bytes: make([]byte, 0, 256),
	}
}

// writeSized stores v as the minimal number of little endian bytes (at least
// minSize), and the extra size in sizeBits of the bit stream.
func (w *Writer) writeSized(minSize, sizeBits int, v uint64) {
	size := 0
	for size < minSize || v != 0 {
		w.bytes = append(w.bytes, byte(v))
		v >>= 8
		size++
	}
	w.bits.write(sizeBits, uint(size-minSize))
}

func (r *Reader) readSized(minSize, sizeBits int) uint64 {
	size := int(r.bits.read(sizeBits)) + minSize
	buf := r.bytes.next(size)
	var v uint64
	for i, b := range buf {
		v |= uint64(b) << uint(8*i)
	}
	if size > minSize && buf[size-1] == 0 {
		panic(ErrNonCanonicalEncoding)
	}
	return v
}

func (w *Writer) U8(v uint8) {
	w.bytes = append(w.bytes, v)
}

func (r *Reader) U8() uint8 {
	return r.bytes.nextByte()
}

func (w *Writer) U16(v uint16) {
	w.writeSized(1, 1, uint64(v))
}

func (r *Reader) U16() uint16 {
	return uint16(r.readSized(1, 1))
}

func (w *Writer) U32(v uint32) {
	w.writeSized(1, 2, uint64(v))
}

func (r *Reader) U32() uint32 {
	return uint32(r.readSized(1, 2))
}

func (w *Writer) U64(v uint64) {
	w.writeSized(1, 3, v)
}

func (r *Reader) U64() uint64 {
	return r.readSized(1, 3)
}

// U56 is used for lengths. Zero takes no bytes at all.
func (w *Writer) U56(v uint64) {
	const max = 1<<(8*7) - 1
	if v > max {
		panic("cser: value too big for U56")
	}
	w.writeSized(0, 3, v)
}

func (r *Reader) U56() uint64 {
	return r.readSized(0, 3)
}

// I64 writes the sign into the bit stream and the magnitude as U64.
func (w *Writer) I64(v int64) {
	w.Bool(v < 0)
	if v < 0 {
		w.U64(uint64(-v))
		return
	}
	w.U64(uint64(v))
}

func (r *Reader) I64() int64 {
	neg := r.Bool()
	abs := r.U64()
	if neg && abs == 0 {
		panic(ErrNonCanonicalEncoding)
	}
	if neg {
		return -int64(abs)
	}
	return int64(abs)
}

func (w *Writer) Bool(v bool) {
	bit := uint(0)
	if v {
		bit = 1
	}
	w.bits.write(1, bit)
}

func (r *Reader) Bool() bool {
	return r.bits.read(1) != 0
}

func (w *Writer) FixedBytes(v []byte) {
	w.bytes = append(w.bytes, v...)
}

func (r *Reader) FixedBytes(v []byte) {
	copy(v, r.bytes.next(len(v)))
}

func (w *Writer) SliceBytes(v []byte) {
	w.U56(uint64(len(v)))
	w.FixedBytes(v)
}

func (r *Reader) SliceBytes(maxLen int) []byte {
	size := r.U56()
	if size > uint64(maxLen) {
		panic(ErrTooLargeAlloc)
	}
	buf := make([]byte, size)
	r.FixedBytes(buf)
	return buf
}

func (w *Writer) String(s string) {
	w.SliceBytes([]byte(s))
}

func (r *Reader) String(maxLen int) string {
	return string(r.SliceBytes(maxLen))
}

// Hash writes a presence bit and, for a non-zero hash, its 32 bytes.
// Commit/reveal values are empty for most miners most of the time.
func (w *Writer) Hash(h hash.Hash) {
	empty := h == hash.Hash{}
	w.Bool(!empty)
	if !empty {
		w.FixedBytes(h[:])
	}
}

func (r *Reader) Hash() hash.Hash {
	var h hash.Hash
	if !r.Bool() {
		return h
	}
	r.FixedBytes(h[:])
	if h == (hash.Hash{}) {
		panic(ErrNonCanonicalEncoding)
	}
	return h
}
