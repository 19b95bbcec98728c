package vc

import (
	"errors"
	"log/slog"

	vcerrors "github.com/pilacorp/go-vc-signing/credential/common/errors"
	"github.com/pilacorp/go-vc-signing/credential/common/schema"
)

// SignedSchema is a schema credential together with the public key that
// must verify it. The schema document is the credential's subject.
type SignedSchema struct {
	Credential Credential
	PublicKey  []byte
}

// ID returns the $id of the schema document, if it has one.
func (s SignedSchema) ID() (string, bool) {
	doc, ok := s.Credential.CredentialSubject.(map[string]interface{})
	if !ok {
		return "", false
	}
	id, ok := doc["$id"].(string)
	return id, ok && id != ""
}

// ValidateSchema validates the credential subject through the schema trust chain.
//
// A credential declaring the meta-schema as its only schema is validated
// against the embedded meta-schema when no schema is supplied. Any other
// credential needs a supplied schema credential, whose signature is verified
// before its subject is compiled and used to validate this credential's
// subject.
//
// The chain is one level deep. The schema credential is trusted on its
// signature alone: its own credentialSchema is never looked at, so nothing
// here recurses.
func (c Credential) ValidateSchema(trusted *SignedSchema, opts ...CredentialOpt) error {
	policy := getOptions(opts...).policy

	if trusted == nil {
		declared, ok := c.CredentialSchema.First()
		if ok && !c.CredentialSchema.IsMultiple() && string(declared.ID) == schema.MetaSchemaURI {
			slog.Debug("validating subject against meta-schema", "credential", c.ID)
			meta, err := schema.MetaSchema()
			if err != nil {
				return vcerrors.Wrap(vcerrors.CodeUnknown, err, "meta-schema unavailable")
			}
			return schemaValidationError(meta.Validate(c.CredentialSubject))
		}
		return vcerrors.New(vcerrors.CodeMissingSchema, "Missing schema")
	}

	if err := trusted.Credential.Verify(trusted.PublicKey); err != nil {
		return vcerrors.Wrap(vcerrors.CodeUntrustedSchema, err, "Failed to verify schema signature")
	}
	slog.Debug("schema credential verified", "schema", trusted.Credential.ID)

	if policy.RequireSchemaIDMatch {
		if err := c.checkDeclaredSchema(*trusted); err != nil {
			return err
		}
	}

	validator, err := schema.Compile(trusted.Credential.CredentialSubject)
	if err != nil {
		return vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "invalid schema document")
	}
	return schemaValidationError(validator.Validate(c.CredentialSubject))
}

func (c Credential) checkDeclaredSchema(trusted SignedSchema) error {
	id, ok := trusted.ID()
	if !ok {
		return vcerrors.New(vcerrors.CodeUntrustedSchema, "schema document has no $id")
	}
	for _, declared := range c.CredentialSchema.Values() {
		if string(declared.ID) == id {
			return nil
		}
	}
	return vcerrors.Newf(vcerrors.CodeUntrustedSchema, "schema %q is not declared by the credential", id)
}

func schemaValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return vcerrors.Wrap(vcerrors.CodeSchemaValidation, verr, "credential subject does not match schema")
	}
	return vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "failed to validate credential subject")
}
