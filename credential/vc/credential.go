package vc

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pilacorp/go-vc-signing/credential/common/crypto"
	vcerrors "github.com/pilacorp/go-vc-signing/credential/common/errors"
	"github.com/pilacorp/go-vc-signing/credential/common/jsonmap"
	"github.com/pilacorp/go-vc-signing/credential/common/model"
)

const (
	// DefaultContext seeds the @context of built credentials.
	DefaultContext = "https://www.w3.org/ns/credentials/v2"
	// VerifiableCredentialType is the base credential type.
	VerifiableCredentialType = "VerifiableCredential"
	// JSONSchemaType is the credentialSchema type of built credentials.
	JSONSchemaType = "JsonSchema"
)

// Credential is a W3C Verifiable Credential. It is a plain value: methods
// that change it return a modified copy.
type Credential struct {
	Context           []model.URI              `json:"@context"`
	ID                model.URI                `json:"id,omitempty"`
	Type              model.OneOrMany[string]  `json:"type"`
	Name              string                   `json:"name,omitempty"`
	Description       string                   `json:"description,omitempty"`
	Issuer            model.URI                `json:"issuer"`
	ValidFrom         *time.Time               `json:"validFrom,omitempty"`
	ValidUntil        *time.Time               `json:"validUntil,omitempty"`
	CredentialStatus  *model.OneOrMany[Status] `json:"credentialStatus,omitempty"`
	CredentialSchema  model.OneOrMany[Schema]  `json:"credentialSchema"`
	CredentialSubject interface{}              `json:"credentialSubject"`
	Proof             *model.Proof             `json:"proof,omitempty"`
}

// Status represents the credentialStatus field.
type Status struct {
	ID   model.URI               `json:"id,omitempty"`
	Type model.OneOrMany[string] `json:"type"`
}

// Schema represents a credential schema with an ID and type.
type Schema struct {
	ID   model.URI `json:"id"`
	Type string    `json:"type"`
}

// Policy holds deployment-specific requirements on top of the data model.
type Policy struct {
	// RequireCredentialStatus rejects credentials without credentialStatus.
	RequireCredentialStatus bool
	// RequireSchemaIDMatch requires the trusted schema's $id to be one of the
	// credential's declared credentialSchema ids.
	RequireSchemaIDMatch bool
}

// CredentialOpt configures credential processing options.
type CredentialOpt func(*credentialOptions)

// credentialOptions holds configuration for credential processing.
type credentialOptions struct {
	isValidateSchema bool
	schema           *SignedSchema
	isVerifyProof    bool
	publicKey        []byte
	policy           Policy
	rand             io.Reader
}

// WithSchemaValidation enables schema validation during credential parsing.
// Without WithSchema, only credentials rooted at the meta-schema pass.
func WithSchemaValidation() CredentialOpt {
	return func(c *credentialOptions) {
		c.isValidateSchema = true
	}
}

// WithSchema supplies the signed schema credential and enables schema validation.
func WithSchema(schema SignedSchema) CredentialOpt {
	return func(c *credentialOptions) {
		c.isValidateSchema = true
		c.schema = &schema
	}
}

// WithVerifyProof enables proof verification during credential parsing.
func WithVerifyProof(publicKey []byte) CredentialOpt {
	return func(c *credentialOptions) {
		c.isVerifyProof = true
		c.publicKey = publicKey
	}
}

// WithPolicy sets deployment policy checks.
func WithPolicy(policy Policy) CredentialOpt {
	return func(c *credentialOptions) {
		c.policy = policy
	}
}

// WithRandom sets the entropy source used for generated identifiers.
func WithRandom(rand io.Reader) CredentialOpt {
	return func(c *credentialOptions) {
		c.rand = rand
	}
}

func getOptions(opts ...CredentialOpt) *credentialOptions {
	options := &credentialOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// ParseCredential decodes a JSON credential. Unknown fields are rejected.
// Schema and proof checks run when enabled through opts.
func ParseCredential(rawCredential []byte, opts ...CredentialOpt) (Credential, error) {
	if len(rawCredential) == 0 {
		return Credential{}, vcerrors.New(vcerrors.CodeMalformedInput, "JSON string is empty")
	}

	var c Credential
	if err := json.Unmarshal(rawCredential, &c); err != nil {
		return Credential{}, vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "failed to parse credential")
	}

	options := getOptions(opts...)
	if err := c.CheckPolicy(options.policy); err != nil {
		return Credential{}, err
	}
	if options.isValidateSchema {
		if err := c.ValidateSchema(options.schema, opts...); err != nil {
			return Credential{}, err
		}
	}
	if options.isVerifyProof {
		if err := c.Verify(options.publicKey); err != nil {
			return Credential{}, err
		}
	}
	return c, nil
}

// NewCredential builds a credential from an already-parsed JSON value and
// validates its subject through the schema trust chain.
func NewCredential(value interface{}, schema *SignedSchema, opts ...CredentialOpt) (Credential, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Credential{}, vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "failed to marshal credential value")
	}

	opts = append(opts, WithSchemaValidation())
	if schema != nil {
		opts = append(opts, WithSchema(*schema))
	}
	return ParseCredential(raw, opts...)
}

// Serialize returns the JSON encoding of the credential.
func (c Credential) Serialize() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "failed to serialize credential")
	}
	return data, nil
}

// GetProof returns the attached proof, or an Unsigned error.
func (c Credential) GetProof() (model.Proof, error) {
	if c.Proof == nil {
		return model.Proof{}, vcerrors.New(vcerrors.CodeUnsigned, "VC is unsigned")
	}
	return *c.Proof, nil
}

// GetSigningInput returns the canonical bytes covered by the proof: the
// credential without its proof, encoded with the JSON Canonicalization Scheme.
func (c Credential) GetSigningInput() ([]byte, error) {
	m, err := jsonmap.FromStruct(c)
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "failed to encode credential")
	}
	data, err := m.Canonicalize()
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "failed to canonicalize credential")
	}
	return data, nil
}

// Sign returns a copy of the credential carrying a fresh proof. Any existing
// proof is discarded first.
func (c Credential) Sign(privateKey []byte, opts ...crypto.ProofOpt) (Credential, error) {
	c.Proof = nil
	signingInput, err := c.GetSigningInput()
	if err != nil {
		return Credential{}, err
	}

	proof, err := crypto.CreateProof(signingInput, privateKey, opts...)
	if err != nil {
		return Credential{}, vcerrors.Ensure(vcerrors.CodeKeyError, err, "failed to sign credential")
	}
	c.Proof = proof
	return c, nil
}

// Verify checks the proof against publicKey.
func (c Credential) Verify(publicKey []byte) error {
	proof, err := c.GetProof()
	if err != nil {
		return err
	}

	signingInput, err := c.GetSigningInput()
	if err != nil {
		return err
	}
	return crypto.VerifyProof(proof, signingInput, publicKey)
}

// CheckPolicy applies deployment policy to the credential.
func (c Credential) CheckPolicy(policy Policy) error {
	if policy.RequireCredentialStatus && (c.CredentialStatus == nil || c.CredentialStatus.Len() == 0) {
		return vcerrors.New(vcerrors.CodeMalformedInput, "credentialStatus is required")
	}
	return nil
}

// Validate checks the structural invariants of the data model.
func (c Credential) Validate() error {
	if len(c.Context) == 0 {
		return fmt.Errorf("@context must hold at least one URI")
	}
	for _, u := range c.Context {
		if _, err := model.ParseURI(string(u)); err != nil {
			return fmt.Errorf("invalid @context: %w", err)
		}
	}
	if !c.ID.IsZero() {
		if _, err := model.ParseURI(string(c.ID)); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
	}
	if err := validateTypes(c.Type); err != nil {
		return fmt.Errorf("invalid type: %w", err)
	}
	if _, err := model.ParseURI(string(c.Issuer)); err != nil {
		return fmt.Errorf("invalid issuer: %w", err)
	}
	if c.ValidFrom != nil && c.ValidUntil != nil && c.ValidUntil.Before(*c.ValidFrom) {
		return fmt.Errorf("validUntil %s is before validFrom %s", c.ValidUntil.Format(time.RFC3339), c.ValidFrom.Format(time.RFC3339))
	}
	if c.CredentialStatus != nil {
		for _, s := range c.CredentialStatus.Values() {
			if err := s.validate(); err != nil {
				return fmt.Errorf("invalid credentialStatus: %w", err)
			}
		}
	}
	if c.CredentialSchema.Len() == 0 {
		return fmt.Errorf("credentialSchema is required")
	}
	for _, s := range c.CredentialSchema.Values() {
		if err := s.validate(); err != nil {
			return fmt.Errorf("invalid credentialSchema: %w", err)
		}
	}
	return nil
}

func (s Status) validate() error {
	if !s.ID.IsZero() {
		if _, err := model.ParseURI(string(s.ID)); err != nil {
			return err
		}
	}
	return validateTypes(s.Type)
}

func (s Schema) validate() error {
	if _, err := model.ParseURI(string(s.ID)); err != nil {
		return err
	}
	if s.Type == "" {
		return fmt.Errorf("schema type is required")
	}
	return nil
}

func validateTypes(types model.OneOrMany[string]) error {
	if types.Len() == 0 {
		return fmt.Errorf("at least one type is required")
	}
	for _, t := range types.Values() {
		if t == "" {
			return fmt.Errorf("type must not be empty")
		}
	}
	return nil
}
