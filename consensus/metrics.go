package consensus

import (
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/rony4d/go-dpos/inter"
)

var (
	behaviourCounters = map[inter.Behaviour]metrics.Counter{}

	processedCounter = metrics.GetOrRegisterCounter("dpos/processed", nil)
	mismatchCounter  = metrics.GetOrRegisterCounter("dpos/validation/mismatch", nil)
	libGauge         = metrics.GetOrRegisterGauge("dpos/lib", nil)
	roundGauge       = metrics.GetOrRegisterGauge("dpos/round", nil)
)

func init() {
	for b := inter.Nothing; b <= inter.Invalid; b++ {
		behaviourCounters[b] = metrics.GetOrRegisterCounter("dpos/behaviour/"+b.String(), nil)
	}
}
