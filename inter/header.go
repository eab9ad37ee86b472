package inter

import (
	"errors"

	"github.com/rony4d/go-dpos/utils/cser"
)

const headerVersion = 0

var ErrUnsupportedHeaderVersion = errors.New("unsupported consensus header version")

// HeaderInformation is the consensus extra-data embedded in a block header.
// For UpdateValue and TinyBlock Round is a compact delta, for NextRound and
// NextTerm it is the complete next round.
type HeaderInformation struct {
	SenderPubkey string
	Behaviour    Behaviour
	Round        *Round
}

func (h *HeaderInformation) MarshalCSER(w *cser.Writer) error {
	if !h.Behaviour.Producible() || h.Round == nil {
		return ErrSerMalformedRound
	}
	w.U8(headerVersion)
	w.String(h.SenderPubkey)
	w.U8(uint8(h.Behaviour))
	return h.Round.MarshalCSER(w)
}

func (h *HeaderInformation) UnmarshalCSER(r *cser.Reader) error {
	if v := r.U8(); v != headerVersion {
		return ErrUnsupportedHeaderVersion
	}
	h.SenderPubkey = r.String(ProtocolMaxPubkeyLen)
	h.Behaviour = Behaviour(r.U8())
	if !h.Behaviour.Producible() {
		return ErrUnknownBehaviour
	}
	h.Round = &Round{}
	return h.Round.UnmarshalCSER(r)
}

func (h *HeaderInformation) MarshalBinary() ([]byte, error) {
	return cser.MarshalBinaryAdapter(h.MarshalCSER)
}

func (h *HeaderInformation) UnmarshalBinary(raw []byte) error {
	return cser.UnmarshalBinaryAdapter(raw, h.UnmarshalCSER)
}

// DecodeHeaderInformation parses the consensus extra-data of a header.
func DecodeHeaderInformation(raw []byte) (*HeaderInformation, error) {
	h := &HeaderInformation{}
	if err := h.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return h, nil
}
