package crypto

import (
	"crypto/sha256"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/crypto"

	vcerrors "github.com/pilacorp/go-vc-signing/credential/common/errors"
)

const secp256k1PrivateKeySize = 32

// secp256k1JCS2019 signs a SHA-256 digest with secp256k1. Private keys are
// raw 32-byte scalars, public keys are SEC1 points (compressed on output),
// signatures are the 64-byte R || S form.
type secp256k1JCS2019 struct{}

func (secp256k1JCS2019) Name() string { return ECDSASecp256k1JCS2019 }

func (s secp256k1JCS2019) GenerateKey(rand io.Reader) (KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKeyFromRand(randOrDefault(rand))
	if err != nil {
		return KeyPair{}, vcerrors.Wrap(vcerrors.CodeKeyError, err, "failed to generate secp256k1 key")
	}

	return KeyPair{
		Cryptosuite: s.Name(),
		PrivateKey:  priv.Serialize(),
		PublicKey:   priv.PubKey().SerializeCompressed(),
	}, nil
}

func (secp256k1JCS2019) PublicKey(privateKey []byte) ([]byte, error) {
	if len(privateKey) != secp256k1PrivateKeySize {
		return nil, vcerrors.New(vcerrors.CodeKeyError, "private key must be 32 bytes")
	}
	privKey, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeKeyError, err, "invalid secp256k1 private key")
	}
	return crypto.CompressPubkey(&privKey.PublicKey), nil
}

func (secp256k1JCS2019) Sign(_ io.Reader, privateKey, message []byte) ([]byte, error) {
	if len(privateKey) != secp256k1PrivateKeySize {
		return nil, vcerrors.New(vcerrors.CodeKeyError, "private key must be 32 bytes")
	}
	privKey, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeKeyError, err, "invalid secp256k1 private key")
	}

	hash := sha256.Sum256(message)
	signature, err := crypto.Sign(hash[:], privKey)
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeKeyError, err, "secp256k1: sign error")
	}

	// Drop the recovery byte.
	return signature[:64], nil
}

func (secp256k1JCS2019) Verify(publicKey, message, signature []byte) error {
	pubKey, err := btcec.ParsePubKey(publicKey)
	if err != nil {
		return vcerrors.Wrap(vcerrors.CodeKeyError, err, "failed to parse secp256k1 public key")
	}

	if len(signature) == 65 {
		signature = signature[:64]
	}
	if len(signature) != 64 {
		return invalidSignature()
	}

	hash := sha256.Sum256(message)
	if !crypto.VerifySignature(pubKey.SerializeCompressed(), hash[:], signature) {
		return invalidSignature()
	}
	return nil
}
