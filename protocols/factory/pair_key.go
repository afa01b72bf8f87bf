package factory

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PairKey identifies an unordered asset pair.
//
// Encoding rules:
//   - [0..19]  = the asset with the lower address
//   - [20..39] = the asset with the higher address
//
// Both argument orders of NewPairKey produce the same key, so a PairKey can be
// used directly as a map key for symmetric lookups.
type PairKey [2 * common.AddressLength]byte

// NewPairKey returns the canonical key for a and b.
func NewPairKey(a, b common.Address) PairKey {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	var key PairKey
	copy(key[:common.AddressLength], a[:])
	copy(key[common.AddressLength:], b[:])
	return key
}

// Assets returns the two assets in canonical order.
func (k PairKey) Assets() (asset1, asset2 common.Address) {
	return common.BytesToAddress(k[:common.AddressLength]), common.BytesToAddress(k[common.AddressLength:])
}

// PairAddress derives the address of the pair for this key under factory:
// the last 20 bytes of keccak256(factory ‖ asset1 ‖ asset2).
func (k PairKey) PairAddress(factory common.Address) common.Address {
	return common.BytesToAddress(crypto.Keccak256(factory[:], k[:])[12:])
}

func (k PairKey) String() string {
	return "0x" + hex.EncodeToString(k[:])
}

// MarshalJSON serializes the key as a hex string.
func (k PairKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON parses a hex string and re-canonicalises it.
func (k *PairKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return err
	}
	if len(b) != len(k) {
		return errors.New("pair key must be 40 bytes")
	}
	*k = NewPairKey(common.BytesToAddress(b[:common.AddressLength]), common.BytesToAddress(b[common.AddressLength:]))
	return nil
}
