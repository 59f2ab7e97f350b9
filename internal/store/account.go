package store

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Account is one farm wallet. The plaintext private key lives only in memory;
// the persisted record carries the ciphertext and the derived address.
type Account struct {
	Address             string  `json:"identity"`
	EncryptedPrivateKey string  `json:"encrypted_private_key"`
	Proxy               *string `json:"proxy,omitempty"`
	Recipient           *string `json:"recipient,omitempty"`

	privateKey string
}

// NewAccount derives the account address from the plaintext private key.
func NewAccount(privateKey, encryptedPrivateKey string, proxy, recipient *string) (*Account, error) {
	addr, err := addressFromKey(privateKey)
	if err != nil {
		return nil, err
	}
	return &Account{
		Address:             addr,
		EncryptedPrivateKey: encryptedPrivateKey,
		Proxy:               proxy,
		Recipient:           recipient,
		privateKey:          privateKey,
	}, nil
}

// PrivateKey returns the decrypted key. Empty until the store has been
// loaded or rebuilt with the session password.
func (a *Account) PrivateKey() string {
	return a.privateKey
}

// setPrivateKey installs the decrypted key and re-derives the address from
// it, so the ciphertext stays the authoritative source on reload.
func (a *Account) setPrivateKey(privateKey string) error {
	addr, err := addressFromKey(privateKey)
	if err != nil {
		return err
	}
	a.privateKey = privateKey
	a.Address = addr
	return nil
}

// ProxyURL parses the account's proxy endpoint. Returns nil when the account
// has no proxy assigned.
func (a *Account) ProxyURL() (*url.URL, error) {
	if a.Proxy == nil || *a.Proxy == "" {
		return nil, nil
	}
	u, err := url.Parse(*a.Proxy)
	if err != nil {
		return nil, fmt.Errorf("parse proxy %q: %w", *a.Proxy, err)
	}
	return u, nil
}

func addressFromKey(privateKey string) (string, error) {
	pk, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return "", fmt.Errorf("parse private key: %w", err)
	}
	return crypto.PubkeyToAddress(pk.PublicKey).Hex(), nil
}
