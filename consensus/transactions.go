package consensus

import (
	"fmt"

	"github.com/rony4d/go-dpos/consensus/transition"
	"github.com/rony4d/go-dpos/inter"
	"github.com/rony4d/go-dpos/inter/electtype"
)

// GenerateConsensusTransactions returns the one consensus transaction which
// applies the behaviour embedded in extraData.
func (e *Engine) GenerateConsensusTransactions(snap Reader, block inter.BlockContext, extraData []byte) ([]inter.ConsensusTransaction, error) {
	h, err := inter.DecodeHeaderInformation(extraData)
	if err != nil {
		return nil, err
	}
	if block.Sender != "" && block.Sender != h.SenderPubkey {
		return nil, ErrSenderMismatch
	}
	method, err := inter.MethodOf(h.Behaviour)
	if err != nil {
		return nil, err
	}

	var input []byte
	if h.Behaviour.Terminates() {
		input, err = h.Round.MarshalBinary()
	} else {
		input, err = e.deltaInput(snap, h)
	}
	if err != nil {
		return nil, err
	}
	return []inter.ConsensusTransaction{{Method: method, Input: input}}, nil
}

// deltaInput recovers the round a delta was cut from and extracts the
// transaction input of its sender.
func (e *Engine) deltaInput(snap Reader, h *inter.HeaderInformation) ([]byte, error) {
	s, err := e.load(snap)
	if err != nil {
		return nil, err
	}
	recovered, err := transition.Recover(h.Behaviour, s.current, h.Round, h.SenderPubkey)
	if err != nil {
		return nil, err
	}
	if h.Behaviour == inter.UpdateValue {
		in, err := recovered.ExtractUpdateValueInput(h.SenderPubkey)
		if err != nil {
			return nil, err
		}
		return in.MarshalBinary()
	}
	m := recovered.Miner(h.SenderPubkey)
	latest, _ := m.LatestMiningTime()
	in := &inter.TinyBlockInput{
		RoundID:          recovered.ID(),
		ActualMiningTime: latest,
		ProducedBlocks:   m.ProducedBlocks,
	}
	return in.MarshalBinary()
}

// victories asks the elector, if any, for the miners of term.
func (e *Engine) victories(term uint64) ([]electtype.Victory, error) {
	if e.cfg.Elector == nil {
		return nil, nil
	}
	vv, ok := e.cfg.Elector.Victories(term)
	if !ok {
		e.log.Debug("No election result, miners stay the same", "term", term)
		return nil, nil
	}
	if len(vv) == 0 {
		return nil, fmt.Errorf("%w: empty election result", transition.ErrNoMiners)
	}
	return vv, nil
}
