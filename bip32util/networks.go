package bip32util

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/pkg/errors"
)

// hdNetworks lists the chain params an extended key's version
// bytes are matched against. Testnet precedes regtest since the
// two share HD version bytes.
var hdNetworks = []*chaincfg.Params{
	&chaincfg.MainNetParams,
	&chaincfg.TestNet3Params,
	&chaincfg.RegressionNetParams,
	&chaincfg.SimNetParams,
}

// KeyNetwork resolves the network an extended key belongs to from
// its serialized version bytes. The resulting params follow a key
// through derivation unchanged, and select the WIF encoding of any
// private key produced from it.
func KeyNetwork(key *hdkeychain.ExtendedKey) (*chaincfg.Params, error) {
	for _, params := range hdNetworks {
		if key.IsForNet(params) {
			return params, nil
		}
	}

	return nil, errors.New("extended key is for an unknown network")
}
