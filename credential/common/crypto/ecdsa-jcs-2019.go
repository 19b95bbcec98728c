package crypto

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"io"
	"math/big"

	vcerrors "github.com/pilacorp/go-vc-signing/credential/common/errors"
)

// ecdsaJCS2019 is the legacy P-256 suite: SHA-256 digest, ASN.1 DER
// signature, PKCS#8 private keys and uncompressed public points.
type ecdsaJCS2019 struct{}

func (ecdsaJCS2019) Name() string { return ECDSAJCS2019 }

func (s ecdsaJCS2019) GenerateKey(rand io.Reader) (KeyPair, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), randOrDefault(rand))
	if err != nil {
		return KeyPair{}, vcerrors.Wrap(vcerrors.CodeKeyError, err, "failed to generate P-256 key")
	}

	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return KeyPair{}, vcerrors.Wrap(vcerrors.CodeKeyError, err, "failed to marshal P-256 private key")
	}

	pub, err := marshalP256PublicKey(&priv.PublicKey)
	if err != nil {
		return KeyPair{}, err
	}

	return KeyPair{Cryptosuite: s.Name(), PrivateKey: der, PublicKey: pub}, nil
}

func (ecdsaJCS2019) PublicKey(privateKey []byte) ([]byte, error) {
	priv, err := parseP256PrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return marshalP256PublicKey(&priv.PublicKey)
}

func (ecdsaJCS2019) Sign(rand io.Reader, privateKey, message []byte) ([]byte, error) {
	priv, err := parseP256PrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(message)
	signature, err := ecdsa.SignASN1(randOrDefault(rand), priv, hash[:])
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeKeyError, err, "ecdsa: sign error")
	}
	return signature, nil
}

func (ecdsaJCS2019) Verify(publicKey, message, signature []byte) error {
	pub, err := parseP256PublicKey(publicKey)
	if err != nil {
		return err
	}

	hash := sha256.Sum256(message)
	if !ecdsa.VerifyASN1(pub, hash[:], signature) {
		return invalidSignature()
	}
	return nil
}

func parseP256PrivateKey(der []byte) (*ecdsa.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeKeyError, err, "failed to parse P-256 private key")
	}
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok || priv.Curve != elliptic.P256() {
		return nil, vcerrors.Newf(vcerrors.CodeKeyError, "expected P-256 private key, got %T", key)
	}
	return priv, nil
}

func marshalP256PublicKey(pub *ecdsa.PublicKey) ([]byte, error) {
	ecdhPub, err := pub.ECDH()
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeKeyError, err, "invalid P-256 public key")
	}
	return ecdhPub.Bytes(), nil
}

// parseP256PublicKey accepts an uncompressed point (0x04 || X || Y) or PKIX DER.
func parseP256PublicKey(b []byte) (*ecdsa.PublicKey, error) {
	if len(b) == 65 && b[0] == 0x04 {
		if _, err := ecdh.P256().NewPublicKey(b); err != nil {
			return nil, vcerrors.Wrap(vcerrors.CodeKeyError, err, "invalid P-256 public point")
		}
		return &ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(b[1:33]),
			Y:     new(big.Int).SetBytes(b[33:]),
		}, nil
	}

	key, err := x509.ParsePKIXPublicKey(b)
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeKeyError, err, "failed to parse P-256 public key")
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok || pub.Curve != elliptic.P256() {
		return nil, vcerrors.Newf(vcerrors.CodeKeyError, "expected P-256 public key, got %T", key)
	}
	return pub, nil
}
