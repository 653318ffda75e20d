package bip32util

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/btcsuite/btcutil"
	"github.com/btcsuite/btcutil/base58"
	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/pkg/errors"
)

var (
	// ErrBadFingerprint is returned when a fingerprint string
	// isn't exactly four hex-encoded bytes.
	ErrBadFingerprint = errors.New("fingerprint must be 4 bytes of hex")
)

// Fingerprint identifies a BIP32 key by the first four bytes
// of the HASH160 of its serialized compressed public key.
type Fingerprint [4]byte

// ParseFingerprint decodes an 8 character hex fingerprint.
func ParseFingerprint(s string) (Fingerprint, error) {
	var fp Fingerprint
	if len(s) != hex.EncodedLen(len(fp)) {
		return fp, ErrBadFingerprint
	}

	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fp, ErrBadFingerprint
	}

	copy(fp[:], decoded)
	return fp, nil
}

// Uint32 returns the fingerprint in the big-endian form used by
// hdkeychain.ExtendedKey.ParentFingerprint.
func (fp Fingerprint) Uint32() uint32 {
	return binary.BigEndian.Uint32(fp[:])
}

// String encodes the fingerprint as 8 hex characters.
func (fp Fingerprint) String() string {
	return hex.EncodeToString(fp[:])
}

// KeySource identifies a point in an HD key tree: the fingerprint
// of the master key the path starts from, and the path itself.
type KeySource struct {
	Fingerprint Fingerprint
	Path        Path
}

// String encodes the key source as fingerprint/path, omitting
// the path separator when the path is empty.
func (s *KeySource) String() string {
	if len(s.Path) == 0 {
		return s.Fingerprint.String()
	}

	return s.Fingerprint.String() + "/" + s.Path.String()
}

// KeyFingerprint computes the fingerprint of an extended key.
func KeyFingerprint(key *hdkeychain.ExtendedKey) (Fingerprint, error) {
	var fp Fingerprint

	pubKey, err := key.ECPubKey()
	if err != nil {
		return fp, errors.Wrap(err, "cannot compute key fingerprint")
	}

	copy(fp[:], btcutil.Hash160(pubKey.SerializeCompressed())[:4])
	return fp, nil
}

// keyChildNumber extracts the child-number field of an extended
// key from its serialization. base58 check decoding strips the
// first version byte, leaving the child number at bytes 8:12.
func keyChildNumber(key *hdkeychain.ExtendedKey) (uint32, error) {
	decoded, _, err := base58.CheckDecode(key.String())
	if err != nil {
		return 0, errors.Wrap(err, "cannot decode extended key")
	}

	return binary.BigEndian.Uint32(decoded[8:12]), nil
}
