package cser

// bitWriter appends values of arbitrary bit width, least significant bit first.
type bitWriter struct {
	buf    []byte
	offset int // next free bit in the last byte, 0 means a new byte is needed
}

func (w *bitWriter) write(width int, v uint) {
	for width > 0 {
		if w.offset == 0 {
			w.buf = append(w.buf, 0)
		}
		free := 8 - w.offset
		n := width
		if n > free {
			n = free
		}
		chunk := v & (1<<uint(n) - 1)
		w.buf[len(w.buf)-1] |= byte(chunk << uint(w.offset))
		w.offset = (w.offset + n) % 8
		v >>= uint(n)
		width -= n
	}
}

type bitReader struct {
	buf    []byte
	pos    int // byte index
	offset int // bit index within buf[pos]
}

func (r *bitReader) read(width int) uint {
	var (
		v     uint
		shift uint
	)
	for width > 0 {
		free := 8 - r.offset
		n := width
		if n > free {
			n = free
		}
		chunk := uint(r.buf[r.pos]>>uint(r.offset)) & (1<<uint(n) - 1)
		v |= chunk << shift
		shift += uint(n)
		r.offset += n
		if r.offset == 8 {
			r.offset = 0
			r.pos++
		}
		width -= n
	}
	return v
}

func (r *bitReader) unreadBytes() int {
	return len(r.buf) - r.pos
}

func (r *bitReader) unreadBits() int {
	return r.unreadBytes()*8 - r.offset
}

// byteReader panics with ErrMalformedEncoding on a short read, the adapter
// turns the panic into an error.
type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) next(n int) []byte {
	if n < 0 || r.pos+n > len(r.buf) {
		panic(ErrMalformedEncoding)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *byteReader) nextByte() byte {
	return r.next(1)[0]
}

func (r *byteReader) empty() bool {
	return r.pos == len(r.buf)
}
