// Package signer holds a wallet's private key and exposes only scoped
// access to it: an address derivation and a borrow-style accessor that
// never returns the key itself. Signing is deterministic ECDSA
// (RFC 6979) over secp256k1 via go-ethereum/crypto, with s canonicalised
// to low-s form.
package signer

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// DefaultDerivationPath is the standard Ethereum BIP-44 path prefix
// m/44'/60'/0'/0/{index}, matching the teacher's hardcoded derivation.
const DefaultDerivationPath = "m/44'/60'/0'/0"

// Signer holds a 32-byte scalar and exposes only address() and
// with_key(f) per spec.md §4.2. The key is never stored on any other
// struct; it is the wallet's one long-lived scalar and outlives any
// single WithKey call, since every signing operation for the wallet's
// lifetime (spec.md §3) goes through it.
type Signer struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// FromPrivateKeyHex constructs a Signer from a hex-encoded 32-byte
// scalar, accepting an optional 0x prefix. Grounded on the hex-parsing
// validation shape used by ethereum signer constructors in the example
// corpus (odd-length and bad-length rejection before crypto.ToECDSA).
func FromPrivateKeyHex(hexKey string) (*Signer, error) {
	trimmed := strings.TrimPrefix(hexKey, "0x")
	if len(trimmed)%2 != 0 {
		return nil, fmt.Errorf("invalid private key hex: odd length")
	}

	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &Signer{
		key:  key,
		addr: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// FromMnemonic derives a key from a BIP-39 mnemonic along the standard
// Ethereum BIP-44 path m/44'/60'/0'/0/{index}. Ported from the teacher's
// wallet.DeriveKey, generalised only in naming (the hierarchy walked is
// unchanged: purpose' -> coin_type' -> account' -> change -> index).
func FromMnemonic(mnemonic string, index uint32) (*Signer, error) {
	seed := bip39.NewSeed(mnemonic, "")

	masterKey, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("creating master key: %w", err)
	}

	purpose, err := masterKey.NewChildKey(bip32.FirstHardenedChild + 44)
	if err != nil {
		return nil, fmt.Errorf("deriving purpose: %w", err)
	}

	coinType, err := purpose.NewChildKey(bip32.FirstHardenedChild + 60)
	if err != nil {
		return nil, fmt.Errorf("deriving coin type: %w", err)
	}

	account, err := coinType.NewChildKey(bip32.FirstHardenedChild + 0)
	if err != nil {
		return nil, fmt.Errorf("deriving account: %w", err)
	}

	change, err := account.NewChildKey(0)
	if err != nil {
		return nil, fmt.Errorf("deriving change: %w", err)
	}

	child, err := change.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("deriving child %d: %w", index, err)
	}

	key, err := crypto.ToECDSA(child.Key)
	if err != nil {
		return nil, fmt.Errorf("converting to ECDSA: %w", err)
	}

	return &Signer{
		key:  key,
		addr: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the deterministically derived wallet address.
func (s *Signer) Address() common.Address {
	return s.addr
}

// WithKey grants the callback scoped access to a transient copy of the
// private key and zeroes that copy's backing bytes before returning.
// The canonical scalar on s is never mutated, so a Signer remains
// usable for repeated calls across its lifetime (a single bridge
// transfer alone signs through it twice: approve, then the burn/fill
// transaction). The key MUST NOT escape the callback via a return
// value or stored reference.
func WithKey[R any](s *Signer, f func(*ecdsa.PrivateKey) (R, error)) (R, error) {
	transient := &ecdsa.PrivateKey{
		PublicKey: s.key.PublicKey,
		D:         new(big.Int).Set(s.key.D),
	}
	defer zeroize(transient)
	return f(transient)
}

// zeroize overwrites the private scalar's bytes. Best-effort: Go's
// garbage collector may have relocated copies of the big.Int's backing
// array before this runs, but this eliminates the long-lived copy held
// by the transient key during WithKey's execution.
func zeroize(key *ecdsa.PrivateKey) {
	if key == nil || key.D == nil {
		return
	}
	bits := key.D.Bits()
	for i := range bits {
		bits[i] = 0
	}
}
