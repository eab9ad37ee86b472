package transition

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"

	"github.com/rony4d/go-dpos/inter"
)

// OutValue commits to an in value.
func OutValue(inValue hash.Hash) hash.Hash {
	return hash.Of(inValue.Bytes())
}

// CalculateSignature mixes inValue with the signatures of the previous
// round, so that nobody can predict the order of the next round alone.
func CalculateSignature(previous *inter.Round, inValue hash.Hash) hash.Hash {
	if previous.Empty() {
		return FirstSignature(inValue)
	}
	acc := hash.Hash{}
	for _, m := range previous.Miners {
		acc = xorAndHash(acc, m.Signature)
	}
	return xorAndHash(inValue, acc)
}

// FirstSignature is the signature of a miner which has no previous round of
// the same term to mix with.
func FirstSignature(inValue hash.Hash) hash.Hash {
	return hash.Of(OutValue(inValue).Bytes(), inValue.Bytes())
}

func xorAndHash(a, b hash.Hash) hash.Hash {
	var x hash.Hash
	for i := range x {
		x[i] = a[i] ^ b[i]
	}
	return hash.Of(x.Bytes())
}

// absModulus reads the signature as a signed integer.
func absModulus(sig hash.Hash, n int) uint32 {
	v := int64(bigendian.BytesToUint64(sig[:8])) % int64(n)
	if v < 0 {
		v = -v
	}
	return uint32(v)
}

// SupposedOrder is the order of the next round a signature asks for.
func SupposedOrder(sig hash.Hash, n int) uint32 {
	return absModulus(sig, n) + 1
}

// ApplyUpdateValue publishes the commitment of pubkey in r and reserves its
// order of the next round. A miner already holding that order is moved to
// the next free one.
func ApplyUpdateValue(r *inter.Round, pubkey string, previousInValue, outValue, signature hash.Hash) error {
	m := r.Miner(pubkey)
	if m == nil {
		return inter.ErrMinerNotFound
	}
	m.OutValue = outValue
	m.Signature = signature
	if m.PreviousInValue == (hash.Hash{}) {
		m.PreviousInValue = previousInValue
	}

	n := len(r.Miners)
	supposed := SupposedOrder(signature, n)
	for _, conflicted := range r.Miners {
		if conflicted.FinalOrderOfNextRound != supposed || conflicted == m {
			continue
		}
		for i := int(supposed) + 1; i < n*2; i++ {
			maybe := uint32(i)
			if i > n {
				maybe = uint32(i % n)
			}
			if !finalOrderTaken(r, maybe) {
				conflicted.FinalOrderOfNextRound = maybe
				break
			}
		}
	}
	m.SupposedOrderOfNextRound = supposed
	m.FinalOrderOfNextRound = supposed
	return nil
}

func finalOrderTaken(r *inter.Round, order uint32) bool {
	for _, m := range r.Miners {
		if m.FinalOrderOfNextRound == order {
			return true
		}
	}
	return false
}
