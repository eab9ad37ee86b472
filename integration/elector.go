package integration

import (
	"math/big"

	"github.com/rony4d/go-dpos/inter/electtype"
	"github.com/rony4d/go-dpos/inter/minerpk"
)

// StaticElector re-elects the same miners every term.
type StaticElector struct {
	Miners []minerpk.PubKey
}

func (e StaticElector) Victories(term uint64) ([]electtype.Victory, bool) {
	if len(e.Miners) == 0 {
		return nil, false
	}
	return victoriesOf(e.Miners), true
}

// RotatingElector elects Size consecutive candidates per term, moving the
// window by one candidate per term.
type RotatingElector struct {
	Candidates []minerpk.PubKey
	Size       int
}

func (e *RotatingElector) Victories(term uint64) ([]electtype.Victory, bool) {
	if len(e.Candidates) == 0 || e.Size <= 0 {
		return nil, false
	}
	size := e.Size
	if size > len(e.Candidates) {
		size = len(e.Candidates)
	}
	start := 0
	if term > 0 {
		start = int((term - 1) % uint64(len(e.Candidates)))
	}
	elected := make([]minerpk.PubKey, size)
	for i := range elected {
		elected[i] = e.Candidates[(start+i)%len(e.Candidates)]
	}
	return victoriesOf(elected), true
}

// victoriesOf gives earlier keys more votes.
func victoriesOf(pks []minerpk.PubKey) []electtype.Victory {
	res := make([]electtype.Victory, len(pks))
	for i, pk := range pks {
		res[i] = electtype.Victory{
			PubKey: pk.Copy(),
			Votes:  big.NewInt(int64(len(pks) - i)),
		}
	}
	return res
}
