// Package electtype defines what the election collaborator reports to the
// consensus engine when a new term starts.
package electtype

import (
	"math/big"

	"github.com/rony4d/go-dpos/inter/minerpk"
)

// Victory is one elected miner and the votes it was elected with.
type Victory struct {
	PubKey minerpk.PubKey
	Votes  *big.Int
}

func (v Victory) Copy() Victory {
	cp := Victory{PubKey: v.PubKey.Copy()}
	if v.Votes != nil {
		cp.Votes = new(big.Int).Set(v.Votes)
	}
	return cp
}

// PubKeys returns the elected keys in the reported order.
func PubKeys(vv []Victory) []minerpk.PubKey {
	res := make([]minerpk.PubKey, len(vv))
	for i, v := range vv {
		res[i] = v.PubKey
	}
	return res
}
