package keymap

import (
	"github.com/btccom/descriptorkeys/bip32util"
	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"
)

// KeyRequest identifies the private key a signing subsystem is
// looking for: either by the raw public key it corresponds to, or
// by the fingerprint and derivation path it sits at in an HD
// tree.
type KeyRequest interface {
	keyRequest()
}

// PubkeyRequest asks for the secret behind a raw public key.
type PubkeyRequest struct {
	Key        *btcec.PublicKey
	Compressed bool
}

func (*PubkeyRequest) keyRequest() {}

// PubkeyRequestFromBytes builds a PubkeyRequest from serialized
// public key bytes.
func PubkeyRequestFromBytes(raw []byte) (*PubkeyRequest, error) {
	pubKey, err := btcec.ParsePubKey(raw, btcec.S256())
	if err != nil {
		return nil, errors.Wrap(err, "invalid public key bytes")
	}

	return &PubkeyRequest{
		Key:        pubKey,
		Compressed: len(raw) == btcec.PubKeyBytesLenCompressed,
	}, nil
}

// SourceRequest asks for the secret at a fingerprint/path point
// in an HD key tree.
type SourceRequest struct {
	Source bip32util.KeySource
}

func (*SourceRequest) keyRequest() {}

// GetKey resolves a key request against the stored pairs, scanned
// in canonical order. Absence of a match is not an error: the
// second return value reports whether a key was found.
//
// For a raw public key request the scan stops at the first pair
// whose public key structurally matches, even if deriving the
// private key from that pair then fails; the request resolves to
// no key found rather than continuing to later entries.
func (m *KeyMap) GetKey(ctx bip32util.SigningContext, req KeyRequest) (*btcutil.WIF, bool) {
	switch r := req.(type) {
	case *PubkeyRequest:
		for _, pair := range m.pairs {
			if matched, wif := pair.matchPubkey(ctx, r); matched {
				return wif, wif != nil
			}
		}

	case *SourceRequest:
		for _, pair := range m.pairs {
			if wif := pair.matchSource(ctx, r); wif != nil {
				return wif, true
			}
		}
	}

	log.Tracef("no key found for request %T", req)
	return nil, false
}
