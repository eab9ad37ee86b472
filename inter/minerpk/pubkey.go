// Package minerpk defines the public key which identifies a miner. Rounds and
// headers refer to miners by the key's hex form.
package minerpk

import (
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrEmptyPubKey = errors.New("empty pubkey")

// PubKey is a typed public key: [Type][Raw...].
type PubKey struct {
	Type uint8
	Raw  []byte
}

var Types = struct {
	Secp256k1 uint8
}{
	Secp256k1: 0xc0,
}

func FromECDSA(pub *ecdsa.PublicKey) PubKey {
	return PubKey{Type: Types.Secp256k1, Raw: crypto.FromECDSAPub(pub)}
}

func (pk PubKey) Empty() bool {
	return len(pk.Raw) == 0 && pk.Type == 0
}

// String is the identity of the miner inside rounds.
func (pk PubKey) String() string {
	return "0x" + common.Bytes2Hex(pk.Bytes())
}

func (pk PubKey) Bytes() []byte {
	return append([]byte{pk.Type}, pk.Raw...)
}

func (pk PubKey) Copy() PubKey {
	return PubKey{
		Type: pk.Type,
		Raw:  common.CopyBytes(pk.Raw),
	}
}

// FirstByte is the first byte of the key material, skipping the 0x04 marker
// of an uncompressed secp256k1 key. It is 0 for an empty key.
func (pk PubKey) FirstByte() byte {
	raw := pk.Raw
	if len(raw) == 65 && raw[0] == 0x04 {
		raw = raw[1:]
	}
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}

func FromString(str string) (PubKey, error) {
	return FromBytes(common.FromHex(str))
}

func FromBytes(b []byte) (PubKey, error) {
	if len(b) == 0 {
		return PubKey{}, ErrEmptyPubKey
	}
	return PubKey{b[0], common.CopyBytes(b[1:])}, nil
}

// Strings converts keys into round identities.
func Strings(pks []PubKey) []string {
	res := make([]string, len(pks))
	for i, pk := range pks {
		res[i] = pk.String()
	}
	return res
}

func (pk *PubKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

func (pk *PubKey) UnmarshalText(input []byte) error {
	res, err := FromString(string(input))
	if err != nil {
		return err
	}
	*pk = res
	return nil
}
