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

var (
	// ErrEmptyKey is returned when a key expression contains no
	// key after its origin.
	ErrEmptyKey = errors.New("key expression is missing the key")

	// ErrPathOnSingleKey is returned when a derivation path
	// follows a non-extended key.
	ErrPathOnSingleKey = errors.New("derivation path on a non-extended key")

	// ErrMultipleMultipath is returned when a path contains more
	// than one <a;b> step.
	ErrMultipleMultipath = errors.New("path may contain at most one multipath step")
)

// ParseSecretKey parses a descriptor secret key expression: an
// optional [fingerprint/path] origin, then a WIF private key or
// an extended private key with optional derivation steps, a
// multipath step, and a trailing wildcard.
//
//	[90b6a706/44'/0'/0'/0/0]cMk8gWmj1Kpjd...
//	xprv9s21ZrQH143.../44'/0'/0'/0/*
//	xprv9s21ZrQH143.../<0;1>/*
func ParseSecretKey(s string) (SecretKey, error) {
	origin, rest, err := splitOrigin(s)
	if err != nil {
		return nil, err
	}
	if rest == "" {
		return nil, ErrEmptyKey
	}

	keyStr, pathStr := splitKeyBody(rest)

	if xkey, xErr := hdkeychain.NewKeyFromString(keyStr); xErr == nil {
		if !xkey.IsPrivate() {
			return nil, errors.New("expected an extended private key, found a public one")
		}

		paths, wildcard, err := parseDerivationSteps(pathStr)
		if err != nil {
			return nil, err
		}

		if len(paths) > 1 {
			return &MultiXPrv{Origin: origin, Key: xkey, Paths: paths, Wildcard: wildcard}, nil
		}
		return &XPrv{Origin: origin, Key: xkey, Path: paths[0], Wildcard: wildcard}, nil
	}

	if pathStr != "" {
		return nil, ErrPathOnSingleKey
	}

	wif, err := btcutil.DecodeWIF(keyStr)
	if err != nil {
		return nil, errors.Wrap(err, "invalid single secret key")
	}

	return &SinglePriv{Origin: origin, Key: wif}, nil
}

// ParsePublicKey parses a descriptor public key expression: an
// optional origin, then a hex public key (full or x-only) or an
// extended public key with derivation steps.
func ParsePublicKey(s string) (PublicKey, error) {
	origin, rest, err := splitOrigin(s)
	if err != nil {
		return nil, err
	}
	if rest == "" {
		return nil, ErrEmptyKey
	}

	keyStr, pathStr := splitKeyBody(rest)

	if xkey, xErr := hdkeychain.NewKeyFromString(keyStr); xErr == nil {
		if xkey.IsPrivate() {
			return nil, errors.New("expected an extended public key, found a private one")
		}

		paths, wildcard, err := parseDerivationSteps(pathStr)
		if err != nil {
			return nil, err
		}

		if len(paths) > 1 {
			return &MultiXPub{Origin: origin, Key: xkey, Paths: paths, Wildcard: wildcard}, nil
		}
		return &XPub{Origin: origin, Key: xkey, Path: paths[0], Wildcard: wildcard}, nil
	}

	if pathStr != "" {
		return nil, ErrPathOnSingleKey
	}

	key, err := parseSinglePubKey(keyStr)
	if err != nil {
		return nil, err
	}

	return &SinglePub{Origin: origin, Key: key}, nil
}

// parseSinglePubKey decodes a hex public key: 64 chars for an
// x-only key, 66 or 130 for a full point.
func parseSinglePubKey(s string) (SinglePubKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "invalid hex public key")
	}

	if len(raw) == 32 {
		var xonly XOnlyPub
		copy(xonly[:], raw)
		return xonly, nil
	}

	pubKey, err := btcec.ParsePubKey(raw, btcec.S256())
	if err != nil {
		return nil, errors.Wrap(err, "invalid public key")
	}

	return &FullPub{
		Key:        pubKey,
		Compressed: len(raw) == btcec.PubKeyBytesLenCompressed,
	}, nil
}

// splitOrigin splits a leading [fingerprint/path] key origin off
// a key expression.
func splitOrigin(s string) (*bip32util.KeySource, string, error) {
	if !strings.HasPrefix(s, "[") {
		return nil, s, nil
	}

	end := strings.IndexByte(s, ']')
	if end < 0 {
		return nil, "", errors.New("unterminated key origin")
	}

	inner, rest := s[1:end], s[end+1:]

	fpStr, pathStr := inner, ""
	if i := strings.IndexByte(inner, '/'); i >= 0 {
		fpStr, pathStr = inner[:i], inner[i+1:]
	}

	fp, err := bip32util.ParseFingerprint(fpStr)
	if err != nil {
		return nil, "", errors.Wrap(err, "invalid origin fingerprint")
	}

	path, err := bip32util.ParsePath(pathStr)
	if err != nil {
		return nil, "", errors.Wrap(err, "invalid origin path")
	}

	return &bip32util.KeySource{Fingerprint: fp, Path: path}, rest, nil
}

// splitKeyBody splits a key expression into the key itself and
// the derivation steps that follow it.
func splitKeyBody(s string) (string, string) {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return s[:i], s[i+1:]
	}

	return s, ""
}

// parseDerivationSteps decodes the steps after an extended key:
// plain child indices, at most one <a;b> multipath step, and an
// optional trailing wildcard. One path is returned per multipath
// alternative; a path without a multipath step returns a single
// path.
func parseDerivationSteps(s string) ([]bip32util.Path, Wildcard, error) {
	paths := []bip32util.Path{{}}
	wildcard := WildcardNone

	if s == "" {
		return paths, wildcard, nil
	}

	segments := strings.Split(s, "/")

	switch segments[len(segments)-1] {
	case "*":
		wildcard = WildcardUnhardened
		segments = segments[:len(segments)-1]
	case "*'", "*h", "*H":
		wildcard = WildcardHardened
		segments = segments[:len(segments)-1]
	}

	for _, segment := range segments {
		if strings.HasPrefix(segment, "<") {
			if len(paths) > 1 {
				return nil, WildcardNone, ErrMultipleMultipath
			}

			expanded, err := expandMultipath(paths[0], segment)
			if err != nil {
				return nil, WildcardNone, err
			}

			paths = expanded
			continue
		}

		sequence, err := bip32util.ParsePathSegment(segment)
		if err != nil {
			return nil, WildcardNone, err
		}

		for i := range paths {
			paths[i], err = paths[i].Child(sequence)
			if err != nil {
				return nil, WildcardNone, err
			}
		}
	}

	return paths, wildcard, nil
}

// expandMultipath expands a `<a;b;...>` step into one path per
// alternative, each extending prefix.
func expandMultipath(prefix bip32util.Path, segment string) ([]bip32util.Path, error) {
	if !strings.HasSuffix(segment, ">") {
		return nil, errors.Errorf("malformed multipath step %q", segment)
	}

	alternatives := strings.Split(segment[1:len(segment)-1], ";")
	if len(alternatives) < 2 {
		return nil, errors.New("multipath step needs at least two alternatives")
	}

	paths := make([]bip32util.Path, len(alternatives))
	for i, alternative := range alternatives {
		sequence, err := bip32util.ParsePathSegment(alternative)
		if err != nil {
			return nil, err
		}

		paths[i], err = prefix.Child(sequence)
		if err != nil {
			return nil, err
		}

		for j := 0; j < i; j++ {
			if paths[j].Equal(paths[i]) {
				return nil, errors.New("multipath alternatives must be distinct")
			}
		}
	}

	return paths, nil
}
