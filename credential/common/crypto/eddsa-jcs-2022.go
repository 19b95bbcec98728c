package crypto

import (
	"crypto/ed25519"
	"crypto/x509"
	"io"

	vcerrors "github.com/pilacorp/go-vc-signing/credential/common/errors"
)

// eddsaJCS2022 signs with Ed25519. Private keys are PKCS#8 DER, public keys
// are the raw 32-byte encoding (PKIX DER is accepted on input).
type eddsaJCS2022 struct{}

func (eddsaJCS2022) Name() string { return EdDSAJCS2022 }

func (s eddsaJCS2022) GenerateKey(rand io.Reader) (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(randOrDefault(rand))
	if err != nil {
		return KeyPair{}, vcerrors.Wrap(vcerrors.CodeKeyError, err, "failed to generate Ed25519 key")
	}

	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return KeyPair{}, vcerrors.Wrap(vcerrors.CodeKeyError, err, "failed to marshal Ed25519 private key")
	}

	return KeyPair{Cryptosuite: s.Name(), PrivateKey: der, PublicKey: []byte(pub)}, nil
}

func (eddsaJCS2022) PublicKey(privateKey []byte) ([]byte, error) {
	priv, err := parseEd25519PrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return []byte(priv.Public().(ed25519.PublicKey)), nil
}

func (eddsaJCS2022) Sign(_ io.Reader, privateKey, message []byte) ([]byte, error) {
	priv, err := parseEd25519PrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(priv, message), nil
}

func (eddsaJCS2022) Verify(publicKey, message, signature []byte) error {
	pub, err := parseEd25519PublicKey(publicKey)
	if err != nil {
		return err
	}
	if len(signature) != ed25519.SignatureSize || !ed25519.Verify(pub, message, signature) {
		return invalidSignature()
	}
	return nil
}

func parseEd25519PrivateKey(der []byte) (ed25519.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeKeyError, err, "failed to parse Ed25519 private key")
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, vcerrors.Newf(vcerrors.CodeKeyError, "expected Ed25519 private key, got %T", key)
	}
	return priv, nil
}

func parseEd25519PublicKey(b []byte) (ed25519.PublicKey, error) {
	if len(b) == ed25519.PublicKeySize {
		return ed25519.PublicKey(b), nil
	}

	key, err := x509.ParsePKIXPublicKey(b)
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeKeyError, err, "failed to parse Ed25519 public key")
	}
	pub, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, vcerrors.Newf(vcerrors.CodeKeyError, "expected Ed25519 public key, got %T", key)
	}
	return pub, nil
}
