package vc

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	vcerrors "github.com/pilacorp/go-vc-signing/credential/common/errors"
	"github.com/pilacorp/go-vc-signing/credential/common/jsonmap"
	"github.com/pilacorp/go-vc-signing/credential/common/model"
	"github.com/pilacorp/go-vc-signing/credential/common/schema"
)

// Builder accumulates credential fields. Setters that take free-form input
// validate it immediately, so Build cannot fail.
type Builder struct {
	cred Credential
}

// NewBuilder seeds a credential with the default context, the base type, a
// random urn:uuid id and issuer, and a single JsonSchema entry for schemaID.
func NewBuilder(subject interface{}, schemaID string, opts ...CredentialOpt) (*Builder, error) {
	options := getOptions(opts...)

	schemaURI, err := model.ParseURI(schemaID)
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "invalid schema id")
	}

	normalized, err := jsonmap.Normalize(subject)
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "invalid credential subject")
	}

	id, err := newURN(options.rand)
	if err != nil {
		return nil, err
	}
	issuer, err := newURN(options.rand)
	if err != nil {
		return nil, err
	}

	return &Builder{cred: Credential{
		Context:           []model.URI{DefaultContext},
		ID:                id,
		Type:              model.Single(VerifiableCredentialType),
		Issuer:            issuer,
		CredentialSchema:  model.Single(Schema{ID: schemaURI, Type: JSONSchemaType}),
		CredentialSubject: normalized,
	}}, nil
}

func newURN(rand io.Reader) (model.URI, error) {
	var (
		id  uuid.UUID
		err error
	)
	if rand != nil {
		id, err = uuid.NewRandomFromReader(rand)
	} else {
		id, err = uuid.NewRandom()
	}
	if err != nil {
		return "", vcerrors.Wrap(vcerrors.CodeKeyError, err, "failed to generate identifier")
	}
	return model.URI(id.URN()), nil
}

// SetID replaces the credential id.
func (b *Builder) SetID(id string) error {
	u, err := model.ParseURI(id)
	if err != nil {
		return vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "invalid id")
	}
	b.cred.ID = u
	return nil
}

// ClearID removes the credential id.
func (b *Builder) ClearID() *Builder {
	b.cred.ID = ""
	return b
}

// SetIssuer replaces the issuer.
func (b *Builder) SetIssuer(issuer string) error {
	u, err := model.ParseURI(issuer)
	if err != nil {
		return vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "invalid issuer")
	}
	b.cred.Issuer = u
	return nil
}

// AddContext appends a context URI.
func (b *Builder) AddContext(context string) error {
	u, err := model.ParseURI(context)
	if err != nil {
		return vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "invalid @context")
	}
	b.cred.Context = append(b.cred.Context, u)
	return nil
}

// SetTypes replaces the credential type. One type keeps the scalar shape,
// several produce a list.
func (b *Builder) SetTypes(types ...string) error {
	var t model.OneOrMany[string]
	if len(types) == 1 {
		t = model.Single(types[0])
	} else {
		t = model.Multiple(types...)
	}
	if err := validateTypes(t); err != nil {
		return vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "invalid type")
	}
	b.cred.Type = t
	return nil
}

// SetName sets the human-readable name.
func (b *Builder) SetName(name string) *Builder {
	b.cred.Name = name
	return b
}

// SetDescription sets the human-readable description.
func (b *Builder) SetDescription(description string) *Builder {
	b.cred.Description = description
	return b
}

// SetValidFrom sets the start of the validity window.
func (b *Builder) SetValidFrom(t time.Time) error {
	t = t.UTC()
	if b.cred.ValidUntil != nil && b.cred.ValidUntil.Before(t) {
		return vcerrors.New(vcerrors.CodeMalformedInput, "validFrom is after validUntil")
	}
	b.cred.ValidFrom = &t
	return nil
}

// SetValidUntil sets the end of the validity window.
func (b *Builder) SetValidUntil(t time.Time) error {
	t = t.UTC()
	if b.cred.ValidFrom != nil && t.Before(*b.cred.ValidFrom) {
		return vcerrors.New(vcerrors.CodeMalformedInput, "validUntil is before validFrom")
	}
	b.cred.ValidUntil = &t
	return nil
}

// SetStatus sets credentialStatus.
func (b *Builder) SetStatus(status model.OneOrMany[Status]) error {
	if status.IsZero() {
		b.cred.CredentialStatus = nil
		return nil
	}
	for _, s := range status.Values() {
		if err := s.validate(); err != nil {
			return vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "invalid credentialStatus")
		}
	}
	b.cred.CredentialStatus = &status
	return nil
}

// SetProof attaches a proof produced elsewhere.
func (b *Builder) SetProof(proof *model.Proof) *Builder {
	if proof == nil {
		b.cred.Proof = nil
		return b
	}
	p := *proof
	p.Created = p.Created.UTC()
	b.cred.Proof = &p
	return b
}

// Build returns the accumulated credential.
func (b *Builder) Build() Credential {
	c := b.cred
	c.Context = append([]model.URI{}, b.cred.Context...)
	return c
}

// CreateCredential builds a credential for subject and validates it through
// the schema trust chain. With a schema the credential declares the schema's
// $id; without one it declares the meta-schema.
func CreateCredential(subject interface{}, trusted *SignedSchema, opts ...CredentialOpt) (Credential, error) {
	schemaID := schema.MetaSchemaURI
	if trusted != nil {
		id, ok := trusted.ID()
		if !ok {
			return Credential{}, vcerrors.New(vcerrors.CodeMalformedInput, "schema document has no $id")
		}
		schemaID = id
	}

	b, err := NewBuilder(subject, schemaID, opts...)
	if err != nil {
		return Credential{}, err
	}

	c := b.Build()
	if err := c.ValidateSchema(trusted, opts...); err != nil {
		return Credential{}, fmt.Errorf("failed to create credential: %w", err)
	}
	return c, nil
}
