package keymap

import (
	"github.com/btccom/descriptorkeys/bip32util"
	"github.com/btccom/descriptorkeys/descriptor"
	"github.com/btcsuite/btcutil"
	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/pkg/errors"
)

// keyPair is one stored (public, secret) association. Each
// implementation holds matching concrete key variants, so a
// mismatched pair cannot be represented, and answers the two
// kinds of key request for its variant.
type keyPair interface {
	publicEntry() descriptor.PublicKey
	secretEntry() descriptor.SecretKey

	// matchPubkey reports whether the stored public key
	// structurally matches a raw public key request, and on a
	// match the resolved private key. A match with a nil key
	// means the pair matched but the key could not be derived.
	matchPubkey(ctx bip32util.SigningContext, req *PubkeyRequest) (bool, *btcutil.WIF)

	// matchSource resolves a fingerprint/path request, or
	// returns nil if this pair doesn't answer it.
	matchSource(ctx bip32util.SigningContext, req *SourceRequest) *btcutil.WIF
}

// newKeyPair derives the public counterpart of a secret key and
// builds the pair for its variant.
func newKeyPair(ctx bip32util.SigningContext, secret descriptor.SecretKey) (keyPair, error) {
	switch s := secret.(type) {
	case *descriptor.SinglePriv:
		pub, err := s.ToPublic(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "cannot derive public key")
		}
		return &singlePair{pub: pub, sec: s}, nil

	case *descriptor.XPrv:
		pub, err := s.ToPublic()
		if err != nil {
			return nil, errors.Wrap(err, "cannot derive public key")
		}
		return &xprvPair{pub: pub, sec: s}, nil

	case *descriptor.MultiXPrv:
		pub, err := s.ToPublic()
		if err != nil {
			return nil, errors.Wrap(err, "cannot derive public key")
		}
		return &multiPair{pub: pub, sec: s}, nil
	}

	return nil, errors.Errorf("unsupported secret key type %T", secret)
}

// singlePair associates a raw public key with its raw secret.
type singlePair struct {
	pub *descriptor.SinglePub
	sec *descriptor.SinglePriv
}

func (p *singlePair) publicEntry() descriptor.PublicKey { return p.pub }

func (p *singlePair) secretEntry() descriptor.SecretKey { return p.sec }

func (p *singlePair) matchPubkey(_ bip32util.SigningContext, req *PubkeyRequest) (bool, *btcutil.WIF) {
	// X-only keys are not compared against raw key bytes.
	full, ok := p.pub.Key.(*descriptor.FullPub)
	if !ok {
		return false, nil
	}

	if !full.Key.IsEqual(req.Key) || full.Compressed != req.Compressed {
		return false, nil
	}

	return true, p.sec.Key
}

func (p *singlePair) matchSource(_ bip32util.SigningContext, _ *SourceRequest) *btcutil.WIF {
	// Single keys carry no derivation metadata to match against.
	return nil
}

// xprvPair associates an extended public key with its extended
// private key.
type xprvPair struct {
	pub *descriptor.XPub
	sec *descriptor.XPrv
}

func (p *xprvPair) publicEntry() descriptor.PublicKey { return p.pub }

func (p *xprvPair) secretEntry() descriptor.SecretKey { return p.sec }

func (p *xprvPair) matchPubkey(ctx bip32util.SigningContext, req *PubkeyRequest) (bool, *btcutil.WIF) {
	embedded, err := p.pub.Key.ECPubKey()
	if err != nil || !embedded.IsEqual(req.Key) {
		return false, nil
	}

	child, err := ctx.Derive(p.sec.Key, p.sec.Path)
	if err != nil {
		log.Debugf("matched %s but derivation failed: %v", p.pub, err)
		return true, nil
	}

	wif, err := extendedWIF(child, p.sec.Key)
	if err != nil {
		return true, nil
	}

	return true, wif
}

func (p *xprvPair) matchSource(ctx bip32util.SigningContext, req *SourceRequest) *btcutil.WIF {
	return sourceWIF(ctx, p.sec.Key, req)
}

// multiPair associates a multipath extended public key with its
// extended private key.
type multiPair struct {
	pub *descriptor.MultiXPub
	sec *descriptor.MultiXPrv
}

func (p *multiPair) publicEntry() descriptor.PublicKey { return p.pub }

func (p *multiPair) secretEntry() descriptor.SecretKey { return p.sec }

func (p *multiPair) matchPubkey(_ bip32util.SigningContext, req *PubkeyRequest) (bool, *btcutil.WIF) {
	embedded, err := p.pub.Key.ECPubKey()
	if err != nil || !embedded.IsEqual(req.Key) {
		return false, nil
	}

	// A multipath secret already denotes one resolved key per
	// request at this layer; no further derivation.
	wif, err := extendedWIF(p.sec.Key, p.sec.Key)
	if err != nil {
		return true, nil
	}

	return true, wif
}

func (p *multiPair) matchSource(ctx bip32util.SigningContext, req *SourceRequest) *btcutil.WIF {
	return sourceWIF(ctx, p.sec.Key, req)
}

// sourceWIF delegates a fingerprint/path request to the signing
// context's combined match-and-derive routine.
func sourceWIF(ctx bip32util.SigningContext, key *hdkeychain.ExtendedKey, req *SourceRequest) *btcutil.WIF {
	child, ok := ctx.DeriveWithSource(key, req.Source)
	if !ok {
		return nil
	}

	wif, err := extendedWIF(child, key)
	if err != nil {
		return nil
	}

	return wif
}

// extendedWIF converts a derived extended private key into WIF
// form, carrying over the network of the key it was derived from.
func extendedWIF(derived, parent *hdkeychain.ExtendedKey) (*btcutil.WIF, error) {
	params, err := bip32util.KeyNetwork(parent)
	if err != nil {
		return nil, err
	}

	privKey, err := derived.ECPrivKey()
	if err != nil {
		return nil, errors.Wrap(err, "derived key has no private material")
	}

	return btcutil.NewWIF(privKey, params, true)
}
