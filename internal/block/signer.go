package block

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"

	apperrors "github.com/carlosrabelo/powminer/pkg/errors"
)

// ErrInvalidSignature means a reward transaction failed self-verification
var ErrInvalidSignature = apperrors.New(apperrors.CodeSignatureInvalid, "reward signature does not verify")

// Signer signs reward transactions with the miner's key
type Signer struct {
	key             *rsa.PrivateKey
	publicKeyHashed string
}

// NewSigner binds a private key and the encoded public key carried in signed transactions
func NewSigner(key *rsa.PrivateKey, publicKeyHashed string) *Signer {
	return &Signer{key: key, publicKeyHashed: publicKeyHashed}
}

func digest(tx Transaction) []byte {
	sum := sha1.Sum([]byte(tx.SigningPayload()))
	return sum[:]
}

// Sign fills the signature and public key fields of tx
func (s *Signer) Sign(tx *Transaction) error {
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA1, digest(*tx))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSignatureInvalid, "sign reward", err)
	}
	tx.Signature = base64.StdEncoding.EncodeToString(sig)
	tx.PublicKey = s.publicKeyHashed
	return nil
}

// Verify checks tx's signature against the signer's public key
func (s *Signer) Verify(tx Transaction) error {
	sig, err := base64.StdEncoding.DecodeString(tx.Signature)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSignatureInvalid, ErrInvalidSignature.Message, err)
	}
	if err := rsa.VerifyPKCS1v15(&s.key.PublicKey, crypto.SHA1, digest(tx), sig); err != nil {
		return apperrors.Wrap(apperrors.CodeSignatureInvalid, ErrInvalidSignature.Message, err)
	}
	return nil
}
