package cser

// MarshalBinaryAdapter runs marshalCser and packs both streams into
// [bytes][bits][reversed varint(len(bits))].
func MarshalBinaryAdapter(marshalCser func(*Writer) error) ([]byte, error) {
	w := NewWriter()
	if err := marshalCser(w); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(w.bytes)+len(w.bits.buf)+2)
	out = append(out, w.bytes...)
	out = append(out, w.bits.buf...)
	return append(out, reversed(sizeVarint(uint64(len(w.bits.buf))))...), nil
}

// UnmarshalBinaryAdapter splits raw into the two streams, runs unmarshalCser
// and requires every byte and bit to be consumed.
func UnmarshalBinaryAdapter(raw []byte, unmarshalCser func(*Reader) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok && (e == ErrNonCanonicalEncoding || e == ErrTooLargeAlloc) {
				err = e
				return
			}
			err = ErrMalformedEncoding
		}
	}()

	suffix := reversed(tail(raw, 9))
	bitsSize, consumed := readSizeVarint(suffix)
	raw = raw[:len(raw)-consumed]
	if uint64(len(raw)) < bitsSize {
		return ErrMalformedEncoding
	}
	split := uint64(len(raw)) - bitsSize
	r := &Reader{
		bits:  bitReader{buf: raw[split:]},
		bytes: byteReader{buf: raw[:split]},
	}

	if err = unmarshalCser(r); err != nil {
		return err
	}

	if r.bits.unreadBytes() > 1 {
		return ErrNonCanonicalEncoding
	}
	if r.bits.read(r.bits.unreadBits()) != 0 {
		return ErrNonCanonicalEncoding
	}
	if !r.bytes.empty() {
		return ErrNonCanonicalEncoding
	}
	return nil
}

// sizeVarint is a base-128 varint where the high bit marks the last byte.
func sizeVarint(v uint64) []byte {
	out := make([]byte, 0, 2)
	for {
		chunk := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, chunk|0x80)
		}
		out = append(out, chunk)
	}
}

func readSizeVarint(b []byte) (v uint64, n int) {
	for i := 0; ; i++ {
		if i >= len(b) {
			panic(ErrMalformedEncoding)
		}
		chunk := uint64(b[i])
		word := chunk & 0x7f
		v |= word << uint(7*i)
		if chunk&0x80 != 0 {
			if i > 0 && word == 0 {
				panic(ErrNonCanonicalEncoding)
			}
			return v, i + 1
		}
	}
}

func tail(b []byte, n int) []byte {
	if len(b) > n {
		return b[len(b)-n:]
	}
	return b
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
