package crypto

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	cryptorand "crypto/rand"
	"crypto/x509"
	"io"
	"sort"

	vcerrors "github.com/pilacorp/go-vc-signing/credential/common/errors"
)

// Cryptosuite identifiers recorded in proof.cryptosuite.
const (
	EdDSAJCS2022          = "eddsa-jcs-2022"
	ECDSAJCS2019          = "ecdsa-jcs-2019"
	ECDSASecp256k1JCS2019 = "ecdsa-secp256k1-jcs-2019"

	DefaultCryptosuite = EdDSAJCS2022
)

// KeyPair holds raw key blobs for one cryptosuite.
type KeyPair struct {
	Cryptosuite string
	PrivateKey  []byte
	PublicKey   []byte
}

// Suite signs and verifies canonical document bytes with one algorithm and key format.
type Suite interface {
	// Name returns the cryptosuite identifier.
	Name() string

	// GenerateKey creates a key pair using rand as the entropy source.
	GenerateKey(rand io.Reader) (KeyPair, error)

	// PublicKey derives the public key blob from a private key blob.
	PublicKey(privateKey []byte) ([]byte, error)

	// Sign signs message. rand is only consulted by randomized algorithms.
	Sign(rand io.Reader, privateKey, message []byte) ([]byte, error)

	// Verify returns nil when signature is valid for message under publicKey.
	Verify(publicKey, message, signature []byte) error
}

var suites = map[string]Suite{
	EdDSAJCS2022:          eddsaJCS2022{},
	ECDSAJCS2019:          ecdsaJCS2019{},
	ECDSASecp256k1JCS2019: secp256k1JCS2019{},
}

// Lookup returns the suite registered under name.
func Lookup(name string) (Suite, error) {
	s, ok := suites[name]
	if !ok {
		return nil, vcerrors.Newf(vcerrors.CodeKeyError, "unsupported cryptosuite %q", name)
	}
	return s, nil
}

// Names returns the supported cryptosuite identifiers in sorted order.
func Names() []string {
	names := make([]string, 0, len(suites))
	for name := range suites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SuiteForPrivateKey picks the suite matching the private key format:
// PKCS#8 Ed25519, PKCS#8 P-256, or a raw 32-byte secp256k1 scalar.
func SuiteForPrivateKey(privateKey []byte) (Suite, error) {
	if len(privateKey) == secp256k1PrivateKeySize {
		return suites[ECDSASecp256k1JCS2019], nil
	}

	key, err := x509.ParsePKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeKeyError, err, "failed to parse private key")
	}

	switch k := key.(type) {
	case ed25519.PrivateKey:
		return suites[EdDSAJCS2022], nil
	case *ecdsa.PrivateKey:
		if k.Curve == elliptic.P256() {
			return suites[ECDSAJCS2019], nil
		}
		return nil, vcerrors.Newf(vcerrors.CodeKeyError, "unsupported ECDSA curve %s", k.Curve.Params().Name)
	default:
		return nil, vcerrors.Newf(vcerrors.CodeKeyError, "unsupported private key type %T", key)
	}
}

// GenerateKeyPair creates a key pair for the named cryptosuite.
func GenerateKeyPair(cryptosuite string, rand io.Reader) (KeyPair, error) {
	s, err := Lookup(cryptosuite)
	if err != nil {
		return KeyPair{}, err
	}
	return s.GenerateKey(rand)
}

// randOrDefault falls back to the operating system CSPRNG.
func randOrDefault(rand io.Reader) io.Reader {
	if rand == nil {
		return cryptorand.Reader
	}
	return rand
}

func invalidSignature() error {
	return vcerrors.New(vcerrors.CodeInvalidSignature, "signature does not match document")
}
