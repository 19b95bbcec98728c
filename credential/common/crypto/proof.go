package crypto

import (
	"io"
	"log/slog"
	"time"

	vcerrors "github.com/pilacorp/go-vc-signing/credential/common/errors"
	"github.com/pilacorp/go-vc-signing/credential/common/model"
)

// ProofOpt configures proof creation.
type ProofOpt func(*proofOptions)

type proofOptions struct {
	cryptosuite string
	clock       func() time.Time
	rand        io.Reader
}

// WithCryptosuite forces the cryptosuite instead of inferring it from the private key.
func WithCryptosuite(name string) ProofOpt {
	return func(o *proofOptions) {
		o.cryptosuite = name
	}
}

// WithClock sets the time source for proof.created.
func WithClock(clock func() time.Time) ProofOpt {
	return func(o *proofOptions) {
		o.clock = clock
	}
}

// WithRandom sets the entropy source for randomized signature algorithms.
func WithRandom(rand io.Reader) ProofOpt {
	return func(o *proofOptions) {
		o.rand = rand
	}
}

func getProofOptions(opts ...ProofOpt) *proofOptions {
	options := &proofOptions{
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// CreateProof signs the canonical document bytes and returns the proof to attach.
func CreateProof(signingInput, privateKey []byte, opts ...ProofOpt) (*model.Proof, error) {
	options := getProofOptions(opts...)

	var (
		suite Suite
		err   error
	)
	if options.cryptosuite != "" {
		suite, err = Lookup(options.cryptosuite)
	} else {
		suite, err = SuiteForPrivateKey(privateKey)
	}
	if err != nil {
		return nil, err
	}

	signature, err := suite.Sign(options.rand, privateKey, signingInput)
	if err != nil {
		return nil, err
	}

	slog.Debug("created proof", "cryptosuite", suite.Name(), "input_bytes", len(signingInput))

	return &model.Proof{
		Type:         model.DataIntegrityProofType,
		Created:      options.clock().UTC(),
		Cryptosuite:  suite.Name(),
		ProofPurpose: model.AssertionMethod,
		ProofValue:   signature,
	}, nil
}

// VerifyProof checks proof against the canonical document bytes, dispatching
// on the recorded cryptosuite.
func VerifyProof(proof model.Proof, signingInput, publicKey []byte) error {
	if proof.Type != model.DataIntegrityProofType {
		return vcerrors.Newf(vcerrors.CodeInvalidSignature, "unsupported proof type %q", proof.Type)
	}

	suite, ok := suites[proof.Cryptosuite]
	if !ok {
		return vcerrors.Newf(vcerrors.CodeInvalidSignature, "unsupported cryptosuite %q", proof.Cryptosuite)
	}

	slog.Debug("verifying proof", "cryptosuite", proof.Cryptosuite)
	return suite.Verify(publicKey, signingInput, proof.ProofValue)
}
