package descriptor

import (
	"testing"

	"github.com/btccom/descriptorkeys/bip32util"
	"github.com/btcsuite/btcutil"
	"github.com/stretchr/testify/assert"
)

func TestSinglePrivToPublic(t *testing.T) {
	ctx := bip32util.NewSigningContext()

	secret, err := ParseSecretKey("[90b6a706/44'/0'/0'/0/0]" + testWif)
	assert.NoError(t, err)

	single := secret.(*SinglePriv)
	pub, err := single.ToPublic(ctx)
	assert.NoError(t, err)

	full, ok := pub.Key.(*FullPub)
	assert.True(t, ok)
	assert.True(t, full.Key.IsEqual(single.Key.PrivKey.PubKey()))
	assert.Equal(t, single.Key.CompressPubKey, full.Compressed)

	// Origin survives the conversion.
	assert.Equal(t, single.Origin, pub.Origin)

	// Equal secrets always map to bit-identical public keys.
	again, err := single.ToPublic(ctx)
	assert.NoError(t, err)
	assert.Equal(t, pub.String(), again.String())
}

func TestSinglePrivToPublicUncompressed(t *testing.T) {
	ctx := bip32util.NewSigningContext()

	wif, err := btcutil.DecodeWIF(testWif)
	assert.NoError(t, err)
	assert.True(t, wif.CompressPubKey)

	uncompressed := &SinglePriv{
		Key: &btcutil.WIF{
			PrivKey:        wif.PrivKey,
			CompressPubKey: false,
		},
	}

	pub, err := uncompressed.ToPublic(ctx)
	assert.NoError(t, err)

	full := pub.Key.(*FullPub)
	assert.False(t, full.Compressed)
	assert.Len(t, full.Serialize(), 65)
}

func TestXPrvToPublic(t *testing.T) {
	secret, err := ParseSecretKey("[90b6a706]" + testXprv + "/44'/0'/0'/0/*")
	assert.NoError(t, err)

	xprv := secret.(*XPrv)
	pub, err := xprv.ToPublic()
	assert.NoError(t, err)

	assert.False(t, pub.Key.IsPrivate())
	assert.Equal(t, xprv.Origin, pub.Origin)
	assert.True(t, xprv.Path.Equal(pub.Path))
	assert.Equal(t, xprv.Wildcard, pub.Wildcard)

	// The embedded public key is the private key's counterpart.
	expected, err := xprv.Key.Neuter()
	assert.NoError(t, err)
	assert.Equal(t, expected.String(), pub.Key.String())
}

func TestMultiXPrvToPublic(t *testing.T) {
	secret, err := ParseSecretKey(testXprv + "/<0;1>/*")
	assert.NoError(t, err)

	multi := secret.(*MultiXPrv)
	pub, err := multi.ToPublic()
	assert.NoError(t, err)

	assert.False(t, pub.Key.IsPrivate())
	assert.Len(t, pub.Paths, 2)
	assert.Equal(t, multi.Wildcard, pub.Wildcard)

	// The multipath step recombines in the canonical form.
	neutered, err := multi.Key.Neuter()
	assert.NoError(t, err)
	assert.Equal(t, neutered.String()+"/<0;1>/*", pub.String())
}

func TestCanonicalFormRoundTrips(t *testing.T) {
	fixtures := []string{
		testWif,
		"[90b6a706/44'/0'/0'/0/0]" + testWif,
		testXprv,
		testXprv + "/44'/0'/0'/0/*",
		"[90b6a706/49']" + testXprv + "/0/*'",
		testXprv + "/84'/<0;1;2>/*",
	}

	for _, expr := range fixtures {
		t.Run(expr, func(t *testing.T) {
			secret, err := ParseSecretKey(expr)
			assert.NoError(t, err)
			assert.Equal(t, expr, secret.String())

			reparsed, err := ParseSecretKey(secret.String())
			assert.NoError(t, err)
			assert.Equal(t, secret.String(), reparsed.String())
		})
	}
}
