package descriptor

import (
	"encoding/hex"
	"strings"

	"github.com/btccom/descriptorkeys/bip32util"
	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcutil"
	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/pkg/errors"
)

// Wildcard describes the trailing derivation step of a ranged
// descriptor key.
type Wildcard int

const (
	// WildcardNone marks a key without a ranged step.
	WildcardNone Wildcard = iota

	// WildcardUnhardened marks a trailing unhardened `*` step.
	WildcardUnhardened

	// WildcardHardened marks a trailing hardened `*'` step.
	WildcardHardened
)

// pathSuffix returns the wildcard's canonical encoding as a
// trailing path step.
func (w Wildcard) pathSuffix() string {
	switch w {
	case WildcardUnhardened:
		return "/*"
	case WildcardHardened:
		return "/*'"
	default:
		return ""
	}
}

// PublicKey is a public key as it appears in an output script
// descriptor: a single raw key, an extended key with optional
// origin and further derivation steps, or an extended key shared
// across several derivation paths at once.
//
// The String form of every variant is canonical; it doubles as
// the total order the key map stores entries under.
type PublicKey interface {
	String() string

	descriptorPublicKey()
}

// SecretKey is the secret counterpart of a PublicKey, holding
// the same derivation metadata around the private key material.
type SecretKey interface {
	String() string

	descriptorSecretKey()
}

// SinglePubKey is the raw key inside a SinglePub: either a full
// curve point or an x-only key.
type SinglePubKey interface {
	String() string

	singlePubKey()
}

// FullPub is a complete public key point, serialized compressed
// or uncompressed.
type FullPub struct {
	Key        *btcec.PublicKey
	Compressed bool
}

// Serialize returns the key bytes in their stored form.
func (k *FullPub) Serialize() []byte {
	if k.Compressed {
		return k.Key.SerializeCompressed()
	}
	return k.Key.SerializeUncompressed()
}

// String encodes the key as hex.
func (k *FullPub) String() string {
	return hex.EncodeToString(k.Serialize())
}

func (k *FullPub) singlePubKey() {}

// XOnlyPub is a public key carrying only the x coordinate.
type XOnlyPub [32]byte

// String encodes the key as hex.
func (k XOnlyPub) String() string {
	return hex.EncodeToString(k[:])
}

func (k XOnlyPub) singlePubKey() {}

// SinglePub is one raw public key, plus the origin it was
// derived from if known.
type SinglePub struct {
	Origin *bip32util.KeySource
	Key    SinglePubKey
}

// String encodes the key with its origin prefix.
func (k *SinglePub) String() string {
	return originPrefix(k.Origin) + k.Key.String()
}

func (k *SinglePub) descriptorPublicKey() {}

// XPub is an extended public key with an optional origin and a
// path of further derivation steps.
type XPub struct {
	Origin   *bip32util.KeySource
	Key      *hdkeychain.ExtendedKey
	Path     bip32util.Path
	Wildcard Wildcard
}

// String encodes the key with its origin, path and wildcard.
func (k *XPub) String() string {
	return originPrefix(k.Origin) + k.Key.String() +
		pathSuffix(k.Path) + k.Wildcard.pathSuffix()
}

func (k *XPub) descriptorPublicKey() {}

// MultiXPub is an extended public key shared across several
// derivation paths, written with a `<a;b>` step.
type MultiXPub struct {
	Origin   *bip32util.KeySource
	Key      *hdkeychain.ExtendedKey
	Paths    []bip32util.Path
	Wildcard Wildcard
}

// String encodes the key with its origin, the recombined
// multipath step, and wildcard.
func (k *MultiXPub) String() string {
	return originPrefix(k.Origin) + k.Key.String() +
		"/" + multipathString(k.Paths) + k.Wildcard.pathSuffix()
}

func (k *MultiXPub) descriptorPublicKey() {}

// SinglePriv is one raw private key in WIF form. The WIF carries
// the network tag and the compression of the derived public key.
type SinglePriv struct {
	Origin *bip32util.KeySource
	Key    *btcutil.WIF
}

// String encodes the key with its origin prefix.
func (k *SinglePriv) String() string {
	return originPrefix(k.Origin) + k.Key.String()
}

func (k *SinglePriv) descriptorSecretKey() {}

// ToPublic derives the public counterpart of the key, preserving
// the origin and the stored compression form.
func (k *SinglePriv) ToPublic(ctx bip32util.SigningContext) (*SinglePub, error) {
	if k.Key == nil || k.Key.PrivKey == nil {
		return nil, errors.New("single secret key holds no key material")
	}

	pubKey, err := ctx.ECPubKey(k.Key.PrivKey)
	if err != nil {
		return nil, errors.Wrap(err, "secret key has no public counterpart")
	}

	return &SinglePub{
		Origin: k.Origin,
		Key:    &FullPub{Key: pubKey, Compressed: k.Key.CompressPubKey},
	}, nil
}

// XPrv is an extended private key with the same derivation
// metadata as its XPub counterpart.
type XPrv struct {
	Origin   *bip32util.KeySource
	Key      *hdkeychain.ExtendedKey
	Path     bip32util.Path
	Wildcard Wildcard
}

// String encodes the key with its origin, path and wildcard.
func (k *XPrv) String() string {
	return originPrefix(k.Origin) + k.Key.String() +
		pathSuffix(k.Path) + k.Wildcard.pathSuffix()
}

func (k *XPrv) descriptorSecretKey() {}

// ToPublic returns the XPub holding this key's embedded public
// half. Origin, path, wildcard and the network tag carry over
// unchanged.
func (k *XPrv) ToPublic() (*XPub, error) {
	neutered, err := neuter(k.Key)
	if err != nil {
		return nil, err
	}

	return &XPub{
		Origin:   k.Origin,
		Key:      neutered,
		Path:     k.Path,
		Wildcard: k.Wildcard,
	}, nil
}

// MultiXPrv is an extended private key shared across several
// derivation paths.
type MultiXPrv struct {
	Origin   *bip32util.KeySource
	Key      *hdkeychain.ExtendedKey
	Paths    []bip32util.Path
	Wildcard Wildcard
}

// String encodes the key with its origin, the recombined
// multipath step, and wildcard.
func (k *MultiXPrv) String() string {
	return originPrefix(k.Origin) + k.Key.String() +
		"/" + multipathString(k.Paths) + k.Wildcard.pathSuffix()
}

func (k *MultiXPrv) descriptorSecretKey() {}

// ToPublic returns the MultiXPub holding this key's embedded
// public half.
func (k *MultiXPrv) ToPublic() (*MultiXPub, error) {
	neutered, err := neuter(k.Key)
	if err != nil {
		return nil, err
	}

	return &MultiXPub{
		Origin:   k.Origin,
		Key:      neutered,
		Paths:    k.Paths,
		Wildcard: k.Wildcard,
	}, nil
}

func neuter(key *hdkeychain.ExtendedKey) (*hdkeychain.ExtendedKey, error) {
	if !key.IsPrivate() {
		return nil, errors.New("extended key is not private")
	}

	neutered, err := key.Neuter()
	if err != nil {
		return nil, errors.Wrap(err, "extended key has no public counterpart")
	}

	return neutered, nil
}

func originPrefix(origin *bip32util.KeySource) string {
	if origin == nil {
		return ""
	}

	return "[" + origin.String() + "]"
}

func pathSuffix(path bip32util.Path) string {
	if len(path) == 0 {
		return ""
	}

	return "/" + path.String()
}

// multipathString recombines a set of expanded derivation paths
// into the `<a;b>` notation they were parsed from. The paths are
// equal length and differ at exactly one position.
func multipathString(paths []bip32util.Path) string {
	diff := 0
	for j := range paths[0] {
		mismatch := false
		for _, p := range paths[1:] {
			if p[j] != paths[0][j] {
				mismatch = true
				break
			}
		}
		if mismatch {
			diff = j
			break
		}
	}

	segments := make([]string, len(paths[0]))
	for j := range segments {
		if j != diff {
			segments[j] = bip32util.PathSegment(paths[0][j])
			continue
		}

		alternatives := make([]string, len(paths))
		for i, p := range paths {
			alternatives[i] = bip32util.PathSegment(p[j])
		}
		segments[j] = "<" + strings.Join(alternatives, ";") + ">"
	}

	return strings.Join(segments, "/")
}
