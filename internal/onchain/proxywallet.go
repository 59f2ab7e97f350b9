package onchain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ProxyWalletDeriver computes the deterministic proxy wallet address for an
// owner EOA. The factory deploys proxy wallets with CREATE2 using
// keccak256(owner) as the salt, so the address is known before deployment:
//
//	address = keccak256(0xff ++ factory ++ salt ++ initCodeHash)[12:]
type ProxyWalletDeriver struct {
	factory      common.Address
	initCodeHash common.Hash
}

func NewProxyWalletDeriver(factoryAddr, initCodeHash string) *ProxyWalletDeriver {
	return &ProxyWalletDeriver{
		factory:      common.HexToAddress(factoryAddr),
		initCodeHash: common.HexToHash(initCodeHash),
	}
}

// Derive returns the proxy wallet address owned by the given EOA.
func (d *ProxyWalletDeriver) Derive(owner common.Address) common.Address {
	salt := crypto.Keccak256Hash(owner.Bytes())

	buf := make([]byte, 0, 1+common.AddressLength+2*common.HashLength)
	buf = append(buf, 0xff)
	buf = append(buf, d.factory.Bytes()...)
	buf = append(buf, salt.Bytes()...)
	buf = append(buf, d.initCodeHash.Bytes()...)

	return common.BytesToAddress(crypto.Keccak256(buf)[12:])
}
