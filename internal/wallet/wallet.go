// Package wallet loads the miner's RSA key material from a wallet file
package wallet

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"os"
	"strings"

	apperrors "github.com/carlosrabelo/powminer/pkg/errors"
)

// DefaultPath is the wallet file looked up in the working directory
const DefaultPath = "wallet.der"

// File is the on-disk wallet layout
type File struct {
	PrivateKey string `json:"Private Key"`
	PublicKey  string `json:"Public Key"`
	Address    string `json:"Address"`
}

// Keys is the loaded key material. It is read-only after Load.
type Keys struct {
	PrivateKey      *rsa.PrivateKey
	PublicKeyPEM    string
	PublicKeyHashed string
	Address         string
}

// Load reads and decodes the wallet at path
func Load(path string) (*Keys, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeWallet, "read wallet "+path, err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeWallet, "decode wallet "+path, err)
	}
	return FromFile(f)
}

// FromFile builds Keys from decoded wallet fields
func FromFile(f File) (*Keys, error) {
	if !strings.HasPrefix(strings.TrimSpace(f.PrivateKey), "-----BEGIN") {
		return nil, apperrors.New(apperrors.CodeWallet, "private key is encrypted or missing; unlock the wallet first")
	}
	key, err := ParsePrivateKey(f.PrivateKey)
	if err != nil {
		return nil, err
	}

	pub := f.PublicKey
	if pub == "" {
		der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeWallet, "encode public key", err)
		}
		pub = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	}

	addr := f.Address
	if addr == "" {
		addr = AddressOf(pub)
	}

	return &Keys{
		PrivateKey:      key,
		PublicKeyPEM:    pub,
		PublicKeyHashed: base64.StdEncoding.EncodeToString([]byte(pub)),
		Address:         addr,
	}, nil
}

// ParsePrivateKey accepts PKCS#1 and PKCS#8 PEM encoded RSA keys
func ParsePrivateKey(s string) (*rsa.PrivateKey, error) {
	blk, _ := pem.Decode([]byte(s))
	if blk == nil {
		return nil, apperrors.New(apperrors.CodeWallet, "private key is not PEM encoded")
	}
	if k, err := x509.ParsePKCS1PrivateKey(blk.Bytes); err == nil {
		return k, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(blk.Bytes)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeWallet, "parse private key", err)
	}
	k, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, apperrors.New(apperrors.CodeWallet, "private key is not RSA")
	}
	return k, nil
}

// AddressOf derives a ledger address from a PEM public key
func AddressOf(publicKeyPEM string) string {
	sum := sha256.Sum224([]byte(publicKeyPEM))
	return hex.EncodeToString(sum[:])
}
