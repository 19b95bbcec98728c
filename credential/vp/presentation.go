package vp

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pilacorp/go-vc-signing/credential/common/crypto"
	vcerrors "github.com/pilacorp/go-vc-signing/credential/common/errors"
	"github.com/pilacorp/go-vc-signing/credential/common/jsonmap"
	"github.com/pilacorp/go-vc-signing/credential/common/model"
	"github.com/pilacorp/go-vc-signing/credential/vc"
)

// VerifiablePresentationType is the base presentation type.
const VerifiablePresentationType = "VerifiablePresentation"

// Presentation is a W3C Verifiable Presentation wrapping one or more credentials.
type Presentation struct {
	ID                   model.URI                      `json:"id,omitempty"`
	Type                 model.OneOrMany[string]        `json:"type"`
	VerifiableCredential model.OneOrMany[vc.Credential] `json:"verifiableCredential"`
	Holder               model.URI                      `json:"holder,omitempty"`
	Proof                *model.Proof                   `json:"proof,omitempty"`
}

// KeyResolver returns the public key that verifies credentials issued by issuer.
type KeyResolver func(ctx context.Context, issuer model.URI) ([]byte, error)

// PresentationOpt configures presentation processing options.
type PresentationOpt func(*presentationOptions)

// presentationOptions holds configuration for presentation processing.
type presentationOptions struct {
	isValidate    bool
	resolver      KeyResolver
	isVerifyProof bool
	publicKey     []byte
}

// WithVCValidation verifies every embedded credential with keys from resolver.
func WithVCValidation(resolver KeyResolver) PresentationOpt {
	return func(p *presentationOptions) {
		p.isValidate = true
		p.resolver = resolver
	}
}

// WithVerifyProof verifies the presentation proof with publicKey.
func WithVerifyProof(publicKey []byte) PresentationOpt {
	return func(p *presentationOptions) {
		p.isVerifyProof = true
		p.publicKey = publicKey
	}
}

func getOptions(opts ...PresentationOpt) *presentationOptions {
	options := &presentationOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// NewPresentation wraps credentials in an unsigned presentation. A single
// credential keeps the scalar shape.
func NewPresentation(holder string, credentials ...vc.Credential) (Presentation, error) {
	if len(credentials) == 0 {
		return Presentation{}, vcerrors.New(vcerrors.CodeMalformedInput, "presentation needs at least one credential")
	}

	p := Presentation{Type: model.Single(VerifiablePresentationType)}
	if len(credentials) == 1 {
		p.VerifiableCredential = model.Single(credentials[0])
	} else {
		p.VerifiableCredential = model.Multiple(credentials...)
	}

	if holder != "" {
		u, err := model.ParseURI(holder)
		if err != nil {
			return Presentation{}, vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "invalid holder")
		}
		p.Holder = u
	}

	if err := p.Validate(); err != nil {
		return Presentation{}, vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "invalid presentation")
	}
	return p, nil
}

// ParsePresentation decodes a JSON presentation. Unknown fields are rejected.
func ParsePresentation(ctx context.Context, rawPresentation []byte, opts ...PresentationOpt) (Presentation, error) {
	if len(rawPresentation) == 0 {
		return Presentation{}, vcerrors.New(vcerrors.CodeMalformedInput, "JSON string is empty")
	}

	var p Presentation
	if err := json.Unmarshal(rawPresentation, &p); err != nil {
		return Presentation{}, vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "failed to parse presentation")
	}

	options := getOptions(opts...)
	if options.isVerifyProof {
		if err := p.Verify(options.publicKey); err != nil {
			return Presentation{}, err
		}
	}
	if options.isValidate {
		if err := p.VerifyCredentials(ctx, options.resolver); err != nil {
			return Presentation{}, err
		}
	}
	return p, nil
}

// FromValue decodes a presentation from an already-parsed JSON value.
func FromValue(ctx context.Context, value interface{}, opts ...PresentationOpt) (Presentation, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Presentation{}, vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "failed to marshal presentation value")
	}
	return ParsePresentation(ctx, raw, opts...)
}

// Serialize returns the JSON encoding of the presentation.
func (p Presentation) Serialize() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "failed to serialize presentation")
	}
	return data, nil
}

// GetProof returns the attached proof, or an Unsigned error.
func (p Presentation) GetProof() (model.Proof, error) {
	if p.Proof == nil {
		return model.Proof{}, vcerrors.New(vcerrors.CodeUnsigned, "VP is unsigned")
	}
	return *p.Proof, nil
}

// GetSigningInput returns the canonical bytes covered by the presentation
// proof. Embedded credentials keep their own proofs.
func (p Presentation) GetSigningInput() ([]byte, error) {
	m, err := jsonmap.FromStruct(p)
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "failed to encode presentation")
	}
	data, err := m.Canonicalize()
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "failed to canonicalize presentation")
	}
	return data, nil
}

// Sign returns a copy of the presentation carrying a fresh proof.
func (p Presentation) Sign(privateKey []byte, opts ...crypto.ProofOpt) (Presentation, error) {
	p.Proof = nil
	signingInput, err := p.GetSigningInput()
	if err != nil {
		return Presentation{}, err
	}

	proof, err := crypto.CreateProof(signingInput, privateKey, opts...)
	if err != nil {
		return Presentation{}, vcerrors.Ensure(vcerrors.CodeKeyError, err, "failed to sign presentation")
	}
	p.Proof = proof
	return p, nil
}

// Verify checks the presentation proof against publicKey. Embedded
// credentials are not verified; see VerifyCredentials.
func (p Presentation) Verify(publicKey []byte) error {
	proof, err := p.GetProof()
	if err != nil {
		return err
	}

	signingInput, err := p.GetSigningInput()
	if err != nil {
		return err
	}
	return crypto.VerifyProof(proof, signingInput, publicKey)
}

// VerifyCredentials verifies every embedded credential concurrently using
// keys from resolver. It returns the first failure.
func (p Presentation) VerifyCredentials(ctx context.Context, resolver KeyResolver) error {
	if resolver == nil {
		return vcerrors.New(vcerrors.CodeKeyError, "no key resolver configured")
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, cred := range p.VerifiableCredential.Values() {
		g.Go(func() error {
			publicKey, err := resolver(ctx, cred.Issuer)
			if err != nil {
				return vcerrors.Wrap(vcerrors.CodeKeyError, err, fmt.Sprintf("failed to resolve key for credential %d", i))
			}
			if err := cred.Verify(publicKey); err != nil {
				return fmt.Errorf("credential %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Validate checks the structural invariants of the presentation.
func (p Presentation) Validate() error {
	if !p.ID.IsZero() {
		if _, err := model.ParseURI(string(p.ID)); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
	}
	if p.Type.Len() == 0 {
		return fmt.Errorf("at least one type is required")
	}
	for _, t := range p.Type.Values() {
		if t == "" {
			return fmt.Errorf("type must not be empty")
		}
	}
	if p.VerifiableCredential.Len() == 0 {
		return fmt.Errorf("verifiableCredential is required")
	}
	for i, c := range p.VerifiableCredential.Values() {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid credential %d: %w", i, err)
		}
	}
	if !p.Holder.IsZero() {
		if _, err := model.ParseURI(string(p.Holder)); err != nil {
			return fmt.Errorf("invalid holder: %w", err)
		}
	}
	return nil
}
