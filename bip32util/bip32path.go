package bip32util

import (
	"math"
	"strconv"
	"strings"

	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/pkg/errors"
)

var (
	// ErrPathTooDeep is returned when a path exceeds the
	// theoretical maximum BIP32 depth of 255, since additional
	// derivations cannot safely be serialized in a uint8
	ErrPathTooDeep = errors.New("path exceeds the maximum BIP32 depth")
)

const (
	hardenedApostrophe = "'"
	hardenedLetter     = "h"
	maxBip32Depth      = math.MaxUint8
)

// Path is a sequence of BIP32 child indices. Hardened steps
// carry the hdkeychain.HardenedKeyStart offset.
type Path []uint32

// Harden returns the hardened form of a child index.
func Harden(sequence uint32) uint32 {
	return sequence + hdkeychain.HardenedKeyStart
}

// IsHardened returns whether the provided sequence has
// the leftmost bit set.
func IsHardened(sequence uint32) bool {
	return sequence&hdkeychain.HardenedKeyStart != 0
}

// PathSegment serializes a single child index into its
// descriptor form, appending ' if the index is hardened.
func PathSegment(sequence uint32) string {
	if IsHardened(sequence) {
		return strconv.Itoa(int(sequence-hdkeychain.HardenedKeyStart)) + hardenedApostrophe
	}
	return strconv.Itoa(int(sequence))
}

// ParsePathSegment decodes a single path step like `44'`, `44h`,
// or `0` into a child index.
func ParsePathSegment(segment string) (uint32, error) {
	hardened := false
	if strings.HasSuffix(segment, hardenedApostrophe) ||
		strings.HasSuffix(segment, hardenedLetter) ||
		strings.HasSuffix(segment, strings.ToUpper(hardenedLetter)) {
		hardened = true
		segment = segment[:len(segment)-1]
	}

	sequence, err := strconv.ParseUint(segment, 10, 31)
	if err != nil {
		return 0, errors.Errorf("invalid child index %q", segment)
	}

	if hardened {
		return Harden(uint32(sequence)), nil
	}

	return uint32(sequence), nil
}

// ParsePath decodes a relative derivation path in descriptor
// notation, eg `44'/0'/0'/0/0`. Both ' and h mark hardened
// steps. The empty string decodes to the empty path.
func ParsePath(path string) (Path, error) {
	if path == "" {
		return Path{}, nil
	}

	pieces := strings.Split(path, "/")
	if len(pieces) > maxBip32Depth {
		return nil, ErrPathTooDeep
	}

	indices := make(Path, len(pieces))
	for i, segment := range pieces {
		sequence, err := ParsePathSegment(segment)
		if err != nil {
			return nil, err
		}
		indices[i] = sequence
	}

	return indices, nil
}

// Child returns a new path extended by one step.
func (p Path) Child(sequence uint32) (Path, error) {
	if len(p)+1 > maxBip32Depth {
		return nil, ErrPathTooDeep
	}

	indices := make(Path, len(p), len(p)+1)
	copy(indices, p)

	return append(indices, sequence), nil
}

// Equal reports whether two paths contain the same steps.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}

	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}

	return true
}

// String encodes the path in canonical descriptor notation,
// using ' for hardened steps. The empty path encodes to "".
func (p Path) String() string {
	steps := make([]string, len(p))
	for i, sequence := range p {
		steps[i] = PathSegment(sequence)
	}

	return strings.Join(steps, "/")
}
