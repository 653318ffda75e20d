package bip32util

import (
	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/pkg/errors"
)

// SigningContext provides the elliptic-curve and BIP32 derivation
// capability required to pair secret keys with public keys and to
// walk HD key trees. Implementations must be safe for concurrent
// use; callers construct one context and pass it into every
// operation that needs it.
type SigningContext interface {
	// ECPubKey derives the public key for a raw private key.
	ECPubKey(priv *btcec.PrivateKey) (*btcec.PublicKey, error)

	// Derive walks the provided path from key, returning the
	// descendant extended key.
	Derive(key *hdkeychain.ExtendedKey, path Path) (*hdkeychain.ExtendedKey, error)

	// DeriveWithSource matches a key source against key and, on a
	// match, derives the descendant it identifies. The source
	// matches when its fingerprint is the key's own fingerprint,
	// or the key's parent fingerprint with the first path step
	// equal to the key's own child number. A derivation failure
	// after a fingerprint match is reported as no match.
	DeriveWithSource(key *hdkeychain.ExtendedKey, source KeySource) (*hdkeychain.ExtendedKey, bool)
}

// secpContext is the SigningContext over btcec's secp256k1
// implementation and hdkeychain derivation.
type secpContext struct{}

// NewSigningContext returns a SigningContext backed by btcec
// and hdkeychain.
func NewSigningContext() SigningContext {
	return &secpContext{}
}

// ECPubKey derives the public key via secp256k1 point
// multiplication.
func (c *secpContext) ECPubKey(priv *btcec.PrivateKey) (*btcec.PublicKey, error) {
	if priv == nil {
		return nil, errors.New("nil private key")
	}

	return priv.PubKey(), nil
}

// Derive walks path from key one child at a time.
func (c *secpContext) Derive(key *hdkeychain.ExtendedKey, path Path) (*hdkeychain.ExtendedKey, error) {
	derived := key
	for _, sequence := range path {
		var err error
		derived, err = derived.Child(sequence)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive child %s", PathSegment(sequence))
		}
	}

	return derived, nil
}

// DeriveWithSource implements combined fingerprint/path matching
// and derivation against a single extended key.
func (c *secpContext) DeriveWithSource(key *hdkeychain.ExtendedKey, source KeySource) (*hdkeychain.ExtendedKey, bool) {
	fp, err := KeyFingerprint(key)
	if err != nil {
		return nil, false
	}

	if fp == source.Fingerprint {
		derived, err := c.Derive(key, source.Path)
		if err != nil {
			return nil, false
		}
		return derived, true
	}

	// The source may identify this key relative to its parent:
	// the fingerprint is the parent's, and the first path step is
	// the step that produced this key.
	if len(source.Path) > 0 && key.ParentFingerprint() == source.Fingerprint.Uint32() {
		childNum, err := keyChildNumber(key)
		if err != nil || childNum != source.Path[0] {
			return nil, false
		}

		derived, err := c.Derive(key, source.Path[1:])
		if err != nil {
			return nil, false
		}
		return derived, true
	}

	return nil, false
}
