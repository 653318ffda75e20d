package keymap

import (
	"sort"
	"testing"

	"github.com/btccom/descriptorkeys/bip32util"
	"github.com/btccom/descriptorkeys/descriptor"
	"github.com/btcsuite/btcutil"
	"github.com/stretchr/testify/assert"
)

func mustWIF(t *testing.T, s string) *btcutil.WIF {
	wif, err := btcutil.DecodeWIF(s)
	if err != nil {
		t.Fatalf("Invalid WIF fixture: %s", err.Error())
	}

	return wif
}

const (
	testXprv = "xprv9s21ZrQH143K3QTDL4LXw2F7HEK3wJUD2nW2nRk4stbPy6cq3jPPqjiChkVvvNKmPGJxWUtg6LnF5kejMRNNU3TGtRBeJgk33yuGBxrMPHi"
	testWif  = "cMk8gWmj1KpjdYnAWwsEDekodMYhbyYBhG8gMtCCxucJ98JzcNij"
	testWif2 = "5HueCGU8rMjxEXxiPuD5BDku4MkFqeZyd4dZ1jvhTVqvbTLvyTJ"
)

func TestInsertRoundTrip(t *testing.T) {
	ctx := bip32util.NewSigningContext()
	m := New()

	assert.True(t, m.IsEmpty())

	secret, err := descriptor.ParseSecretKey(testWif)
	assert.NoError(t, err)

	pub, err := m.Insert(ctx, secret)
	assert.NoError(t, err)
	assert.NotNil(t, pub)
	assert.Equal(t, 1, m.Len())
	assert.False(t, m.IsEmpty())

	stored, ok := m.Get(pub)
	assert.True(t, ok)
	assert.Equal(t, secret.String(), stored.String())
}

func TestInsertIdempotent(t *testing.T) {
	ctx := bip32util.NewSigningContext()
	m := New()

	first, err := m.InsertString(ctx, testWif)
	assert.NoError(t, err)

	second, err := m.InsertString(ctx, testWif)
	assert.NoError(t, err)

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, first.String(), second.String())
}

func TestInsertFirstWriteWins(t *testing.T) {
	ctx := bip32util.NewSigningContext()

	secret, err := descriptor.ParseSecretKey(testWif)
	assert.NoError(t, err)

	m := New()
	pub, err := m.Insert(ctx, secret)
	assert.NoError(t, err)

	// A second pair under the same public key must not replace
	// the first, even when its stored secret differs.
	single := secret.(*descriptor.SinglePriv)
	imposter := &descriptor.SinglePriv{
		Origin: &bip32util.KeySource{},
		Key:    single.Key,
	}

	firstPub := pub.(*descriptor.SinglePub)
	m.insertPair(&singlePair{pub: firstPub, sec: imposter})

	assert.Equal(t, 1, m.Len())

	stored, ok := m.Get(pub)
	assert.True(t, ok)
	assert.Equal(t, secret.String(), stored.String())
}

func TestInsertErrorLeavesMapUnchanged(t *testing.T) {
	ctx := bip32util.NewSigningContext()
	m := New()

	_, err := m.InsertString(ctx, "notakey")
	assert.Error(t, err)
	assert.True(t, m.IsEmpty())

	_, err = m.Insert(ctx, &descriptor.SinglePriv{})
	assert.Error(t, err)
	assert.True(t, m.IsEmpty())
}

func TestForEachCanonicalOrder(t *testing.T) {
	ctx := bip32util.NewSigningContext()

	expressions := []string{
		testXprv + "/44'/0'/0'/0/*",
		testWif,
		"[90b6a706/44'/0'/0'/0/0]" + testWif2,
	}

	m := New()
	for _, expr := range expressions {
		_, err := m.InsertString(ctx, expr)
		assert.NoError(t, err)
	}
	assert.Equal(t, len(expressions), m.Len())

	var keys []string
	m.ForEach(func(pub descriptor.PublicKey, sec descriptor.SecretKey) bool {
		keys = append(keys, pub.String())
		return true
	})

	assert.Len(t, keys, len(expressions))
	assert.True(t, sort.StringsAreSorted(keys))
}

func TestForEachStopsEarly(t *testing.T) {
	ctx := bip32util.NewSigningContext()

	m := New()
	_, err := m.InsertString(ctx, testWif)
	assert.NoError(t, err)
	_, err = m.InsertString(ctx, testWif2)
	assert.NoError(t, err)

	seen := 0
	m.ForEach(func(descriptor.PublicKey, descriptor.SecretKey) bool {
		seen++
		return false
	})

	assert.Equal(t, 1, seen)
}

func TestIterationOrderIsInsertionIndependent(t *testing.T) {
	ctx := bip32util.NewSigningContext()

	expressions := []string{
		testXprv,
		testWif,
		testWif2,
	}

	forward := New()
	for _, expr := range expressions {
		_, err := forward.InsertString(ctx, expr)
		assert.NoError(t, err)
	}

	backward := New()
	for i := len(expressions) - 1; i >= 0; i-- {
		_, err := backward.InsertString(ctx, expressions[i])
		assert.NoError(t, err)
	}

	var forwardKeys, backwardKeys []string
	forward.ForEach(func(pub descriptor.PublicKey, _ descriptor.SecretKey) bool {
		forwardKeys = append(forwardKeys, pub.String())
		return true
	})
	backward.ForEach(func(pub descriptor.PublicKey, _ descriptor.SecretKey) bool {
		backwardKeys = append(backwardKeys, pub.String())
		return true
	})

	assert.Equal(t, forwardKeys, backwardKeys)
}

func TestExtend(t *testing.T) {
	ctx := bip32util.NewSigningContext()

	m := New()
	pub, err := m.InsertString(ctx, "[90b6a706/44']"+testWif)
	assert.NoError(t, err)

	other := New()
	_, err = other.InsertString(ctx, testWif2)
	assert.NoError(t, err)

	// The same public key with a different stored secret: the
	// existing entry must survive the merge.
	imposter := &descriptor.SinglePriv{Key: mustWIF(t, testWif2)}
	other.insertPair(&singlePair{
		pub: pub.(*descriptor.SinglePub),
		sec: imposter,
	})

	m.Extend(other)

	assert.Equal(t, 2, m.Len())

	stored, ok := m.Get(pub)
	assert.True(t, ok)
	assert.Equal(t, "[90b6a706/44']"+testWif, stored.String())
}

func TestGetAbsent(t *testing.T) {
	ctx := bip32util.NewSigningContext()

	m := New()
	_, err := m.InsertString(ctx, testWif)
	assert.NoError(t, err)

	absent, err := descriptor.ParsePublicKey(
		"0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	assert.NoError(t, err)

	_, ok := m.Get(absent)
	assert.False(t, ok)
}
