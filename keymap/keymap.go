package keymap

import (
	"sort"

	"github.com/btccom/descriptorkeys/bip32util"
	"github.com/btccom/descriptorkeys/descriptor"
	"github.com/pkg/errors"
)

// KeyMap is an ordered association from public descriptor keys to
// the secret keys they were derived from. It is populated while a
// descriptor embedding secrets is parsed, and later answers key
// requests from a signing subsystem.
//
// Entries are stored under the canonical string form of their
// public key, so iteration order is deterministic across runs.
// Insertion is first-write-wins: a secret whose public key is
// already present leaves the existing entry untouched.
//
// A KeyMap is built once and then shared read-only; it performs
// no locking of its own, so callers must not interleave Insert or
// Extend with concurrent reads.
type KeyMap struct {
	index map[string]int
	keys  []string
	pairs []keyPair
}

// New creates an empty KeyMap.
func New() *KeyMap {
	return &KeyMap{
		index: make(map[string]int),
	}
}

// Len returns the number of distinct public keys stored.
func (m *KeyMap) Len() int {
	return len(m.pairs)
}

// IsEmpty returns true if the map holds no entries.
func (m *KeyMap) IsEmpty() bool {
	return m.Len() == 0
}

// Insert derives the public counterpart of the provided secret
// key and stores the pair, unless the public key is already
// present. The derived public key is returned either way. On
// error the map is unchanged.
func (m *KeyMap) Insert(ctx bip32util.SigningContext, secret descriptor.SecretKey) (descriptor.PublicKey, error) {
	pair, err := newKeyPair(ctx, secret)
	if err != nil {
		return nil, err
	}

	m.insertPair(pair)

	return pair.publicEntry(), nil
}

// InsertString parses a descriptor secret key expression and
// inserts it. This is the entry point a descriptor parser calls
// for each secret key literal it encounters.
func (m *KeyMap) InsertString(ctx bip32util.SigningContext, expr string) (descriptor.PublicKey, error) {
	secret, err := descriptor.ParseSecretKey(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid secret key expression %q", expr)
	}

	return m.Insert(ctx, secret)
}

// Get returns the secret key stored for the provided public key.
func (m *KeyMap) Get(pub descriptor.PublicKey) (descriptor.SecretKey, bool) {
	i, ok := m.index[pub.String()]
	if !ok {
		return nil, false
	}

	return m.pairs[i].secretEntry(), true
}

// ForEach calls fn for every stored pair in canonical key order,
// stopping early if fn returns false.
func (m *KeyMap) ForEach(fn func(descriptor.PublicKey, descriptor.SecretKey) bool) {
	for _, pair := range m.pairs {
		if !fn(pair.publicEntry(), pair.secretEntry()) {
			return
		}
	}
}

// Extend inserts every pair of the other map into this one, in
// the other map's canonical order, first-write-wins per pair.
func (m *KeyMap) Extend(other *KeyMap) {
	for _, pair := range other.pairs {
		m.insertPair(pair)
	}
}

// insertPair stores a pair under its canonical key, keeping the
// key slice sorted. Existing entries win.
func (m *KeyMap) insertPair(pair keyPair) {
	canonical := pair.publicEntry().String()
	if _, ok := m.index[canonical]; ok {
		log.Tracef("key map already holds %s", canonical)
		return
	}

	i := sort.SearchStrings(m.keys, canonical)

	m.keys = append(m.keys, "")
	copy(m.keys[i+1:], m.keys[i:])
	m.keys[i] = canonical

	m.pairs = append(m.pairs, nil)
	copy(m.pairs[i+1:], m.pairs[i:])
	m.pairs[i] = pair

	for key, pos := range m.index {
		if pos >= i {
			m.index[key] = pos + 1
		}
	}
	m.index[canonical] = i
}
