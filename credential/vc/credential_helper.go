package vc

import (
	"encoding/json"
	"fmt"

	"github.com/pilacorp/go-vc-signing/credential/common/cborcodec"
	"github.com/pilacorp/go-vc-signing/credential/common/jsonmap"
)

var (
	credentialKeys = []string{
		"@context", "id", "type", "name", "description", "issuer", "validFrom", "validUntil",
		"credentialStatus", "credentialSchema", "credentialSubject", "proof",
	}
	requiredCredentialKeys = []string{"@context", "type", "issuer", "credentialSchema", "credentialSubject"}

	statusKeys         = []string{"id", "type"}
	requiredStatusKeys = []string{"type"}
	schemaKeys         = []string{"id", "type"}
)

// Aliases carry the fields without the methods, so the codecs can fall back
// to default struct handling inside the custom methods.
type (
	credentialAlias Credential
	statusAlias     Status
	schemaAlias     Schema
)

func (c Credential) MarshalJSON() ([]byte, error) {
	normalized, err := c.normalize(false)
	if err != nil {
		return nil, err
	}
	return json.Marshal(credentialAlias(normalized))
}

func (c *Credential) UnmarshalJSON(data []byte) error {
	var alias credentialAlias
	if err := jsonmap.StrictUnmarshal(data, &alias, credentialKeys, requiredCredentialKeys); err != nil {
		return fmt.Errorf("invalid credential: %w", err)
	}
	return c.accept(Credential(alias))
}

func (c Credential) MarshalCBOR() ([]byte, error) {
	normalized, err := c.normalize(true)
	if err != nil {
		return nil, err
	}
	return cborcodec.Marshal(credentialAlias(normalized))
}

func (c *Credential) UnmarshalCBOR(data []byte) error {
	var alias credentialAlias
	if err := cborcodec.StrictUnmarshal(data, &alias, credentialKeys, requiredCredentialKeys); err != nil {
		return fmt.Errorf("invalid credential: %w", err)
	}
	return c.accept(Credential(alias))
}

func (c *Credential) accept(decoded Credential) error {
	normalized, err := decoded.normalize(false)
	if err != nil {
		return err
	}
	if err := normalized.Validate(); err != nil {
		return fmt.Errorf("invalid credential: %w", err)
	}
	*c = normalized
	return nil
}

// normalize returns a copy with timestamps in UTC. With subject set, the
// credential subject is reduced to plain JSON values as well.
func (c Credential) normalize(subject bool) (Credential, error) {
	if c.ValidFrom != nil {
		t := c.ValidFrom.UTC()
		c.ValidFrom = &t
	}
	if c.ValidUntil != nil {
		t := c.ValidUntil.UTC()
		c.ValidUntil = &t
	}
	if c.Proof != nil {
		p := *c.Proof
		p.Created = p.Created.UTC()
		c.Proof = &p
	}
	if subject {
		normalized, err := jsonmap.Normalize(c.CredentialSubject)
		if err != nil {
			return Credential{}, fmt.Errorf("invalid credentialSubject: %w", err)
		}
		c.CredentialSubject = normalized
	}
	return c, nil
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var alias statusAlias
	if err := jsonmap.StrictUnmarshal(data, &alias, statusKeys, requiredStatusKeys); err != nil {
		return fmt.Errorf("invalid credentialStatus: %w", err)
	}
	*s = Status(alias)
	return nil
}

func (s *Status) UnmarshalCBOR(data []byte) error {
	var alias statusAlias
	if err := cborcodec.StrictUnmarshal(data, &alias, statusKeys, requiredStatusKeys); err != nil {
		return fmt.Errorf("invalid credentialStatus: %w", err)
	}
	*s = Status(alias)
	return nil
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	var alias schemaAlias
	if err := jsonmap.StrictUnmarshal(data, &alias, schemaKeys, schemaKeys); err != nil {
		return fmt.Errorf("invalid credentialSchema: %w", err)
	}
	*s = Schema(alias)
	return nil
}

func (s *Schema) UnmarshalCBOR(data []byte) error {
	var alias schemaAlias
	if err := cborcodec.StrictUnmarshal(data, &alias, schemaKeys, schemaKeys); err != nil {
		return fmt.Errorf("invalid credentialSchema: %w", err)
	}
	*s = Schema(alias)
	return nil
}
