package inter

import (
	"time"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
)

// Timestamp is a UNIX time in nanoseconds. Durations inside rounds (mining
// intervals, term periods) use the same unit.
type Timestamp uint64

// MaxTimestamp is the arranged time of a command that must never fire.
const MaxTimestamp = Timestamp(1<<63 - 1)

func (t Timestamp) Bytes() []byte {
	return bigendian.Uint64ToBytes(uint64(t))
}

func BytesToTimestamp(b []byte) Timestamp {
	return Timestamp(bigendian.BytesToUint64(b))
}

func FromUnix(sec int64) Timestamp {
	return Timestamp(sec * int64(time.Second))
}

func FromTime(t time.Time) Timestamp {
	return Timestamp(t.UnixNano())
}

func FromDuration(d time.Duration) Timestamp {
	return Timestamp(d)
}

func (t Timestamp) Unix() int64 {
	return int64(t) / int64(time.Second)
}

func (t Timestamp) Milliseconds() int64 {
	return int64(t) / int64(time.Millisecond)
}

func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t)).UTC()
}

func (t Timestamp) Duration() time.Duration {
	return time.Duration(t)
}

func (t Timestamp) String() string {
	return t.Time().Format("15:04:05.000")
}

// Sub returns t-u, clamped to zero.
func (t Timestamp) Sub(u Timestamp) Timestamp {
	if t < u {
		return 0
	}
	return t - u
}

func MaxOf(x, y Timestamp) Timestamp {
	if x > y {
		return x
	}
	return y
}
