package codec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	vcerrors "github.com/pilacorp/go-vc-signing/credential/common/errors"
	"github.com/pilacorp/go-vc-signing/credential/common/model"
	"github.com/pilacorp/go-vc-signing/credential/vc"
)

// VerifiableCredential field numbers.
const (
	vcContextField        protowire.Number = 1
	vcIDField             protowire.Number = 2
	vcTypeField           protowire.Number = 3
	vcNameField           protowire.Number = 4
	vcDescriptionField    protowire.Number = 5
	vcIssuerField         protowire.Number = 6
	vcValidFromField      protowire.Number = 7
	vcValidUntilField     protowire.Number = 8
	vcSingleStatusField   protowire.Number = 9
	vcMultipleStatusField protowire.Number = 10
	vcSingleSchemaField   protowire.Number = 11
	vcMultipleSchemaField protowire.Number = 12
	vcSubjectField        protowire.Number = 13
	vcProofField          protowire.Number = 14

	statusIDField   protowire.Number = 1
	statusTypeField protowire.Number = 2
	schemaIDField   protowire.Number = 1
	schemaTypeField protowire.Number = 2
)

func marshalCredential(c vc.Credential) ([]byte, error) {
	b, err := encodeCredential(c)
	if err != nil {
		return nil, vcerrors.Ensure(vcerrors.CodeMalformedInput, err, "failed to encode protobuf credential")
	}
	return b, nil
}

func unmarshalCredential(data []byte) (vc.Credential, error) {
	c, err := decodeCredential(data)
	if err != nil {
		return vc.Credential{}, vcerrors.Wrap(vcerrors.CodeDecodeError, err, "failed to decode protobuf credential")
	}
	return c, nil
}

func encodeCredential(c vc.Credential) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var m message
	for _, ctx := range c.Context {
		m.string(vcContextField, ctx.String())
	}
	m.optionalString(vcIDField, c.ID.String())

	types, err := encodeTypes(c.Type)
	if err != nil {
		return nil, err
	}
	m.bytes(vcTypeField, types)
	m.optionalString(vcNameField, c.Name)
	m.optionalString(vcDescriptionField, c.Description)
	m.string(vcIssuerField, c.Issuer.String())

	if c.ValidFrom != nil {
		if err := m.timestamp(vcValidFromField, *c.ValidFrom); err != nil {
			return nil, err
		}
	}
	if c.ValidUntil != nil {
		if err := m.timestamp(vcValidUntilField, *c.ValidUntil); err != nil {
			return nil, err
		}
	}

	if c.CredentialStatus != nil {
		if c.CredentialStatus.IsMultiple() {
			var list message
			for _, s := range c.CredentialStatus.Values() {
				b, err := encodeStatus(s)
				if err != nil {
					return nil, err
				}
				list.bytes(repeatedField, b)
			}
			m.bytes(vcMultipleStatusField, list)
		} else {
			s, _ := c.CredentialStatus.First()
			b, err := encodeStatus(s)
			if err != nil {
				return nil, err
			}
			m.bytes(vcSingleStatusField, b)
		}
	}

	if c.CredentialSchema.IsMultiple() {
		var list message
		for _, s := range c.CredentialSchema.Values() {
			list.bytes(repeatedField, encodeSchema(s))
		}
		m.bytes(vcMultipleSchemaField, list)
	} else {
		s, _ := c.CredentialSchema.First()
		m.bytes(vcSingleSchemaField, encodeSchema(s))
	}

	subject, err := encodeSubject(c.CredentialSubject)
	if err != nil {
		return nil, err
	}
	m.bytes(vcSubjectField, subject)

	if c.Proof != nil {
		p, err := encodeProof(*c.Proof)
		if err != nil {
			return nil, err
		}
		m.bytes(vcProofField, p)
	}
	return m, nil
}

func decodeCredential(data []byte) (vc.Credential, error) {
	if len(data) == 0 {
		return vc.Credential{}, fmt.Errorf("input is empty")
	}

	var (
		c          = vc.Credential{Context: []model.URI{}}
		status     = oneof{name: "credential_status"}
		schema     = oneof{name: "credential_schema"}
		typeSeen   bool
		issuerSeen bool
		subjSeen   bool
	)
	err := fields(data, func(num protowire.Number, v []byte) error {
		var err error
		switch num {
		case vcContextField:
			var u model.URI
			if u, err = decodeURI(v); err == nil {
				c.Context = append(c.Context, u)
			}
		case vcIDField:
			c.ID, err = decodeURI(v)
		case vcTypeField:
			c.Type, err = decodeTypes(v, "vc_type")
			typeSeen = true
		case vcNameField:
			c.Name, err = decodeString(v)
		case vcDescriptionField:
			c.Description, err = decodeString(v)
		case vcIssuerField:
			c.Issuer, err = decodeURI(v)
			issuerSeen = true
		case vcValidFromField:
			t, terr := decodeTimestamp(v)
			c.ValidFrom, err = &t, terr
		case vcValidUntilField:
			t, terr := decodeTimestamp(v)
			c.ValidUntil, err = &t, terr
		case vcSingleStatusField:
			if err = status.see(num); err != nil {
				return err
			}
			var s vc.Status
			if s, err = decodeStatus(v); err == nil {
				single := model.Single(s)
				c.CredentialStatus = &single
			}
		case vcMultipleStatusField:
			if err = status.see(num); err != nil {
				return err
			}
			var list []vc.Status
			err = fields(v, func(num protowire.Number, v []byte) error {
				if num != repeatedField {
					return unknownField(num)
				}
				s, err := decodeStatus(v)
				list = append(list, s)
				return err
			})
			multiple := model.Multiple(list...)
			c.CredentialStatus = &multiple
		case vcSingleSchemaField:
			if err = schema.see(num); err != nil {
				return err
			}
			var s vc.Schema
			if s, err = decodeSchema(v); err == nil {
				c.CredentialSchema = model.Single(s)
			}
		case vcMultipleSchemaField:
			if err = schema.see(num); err != nil {
				return err
			}
			var list []vc.Schema
			err = fields(v, func(num protowire.Number, v []byte) error {
				if num != repeatedField {
					return unknownField(num)
				}
				s, err := decodeSchema(v)
				list = append(list, s)
				return err
			})
			c.CredentialSchema = model.Multiple(list...)
		case vcSubjectField:
			c.CredentialSubject, err = decodeSubject(v)
			subjSeen = true
		case vcProofField:
			var p model.Proof
			if p, err = decodeProof(v); err == nil {
				c.Proof = &p
			}
		default:
			err = unknownField(num)
		}
		return err
	})
	if err != nil {
		return vc.Credential{}, err
	}

	switch {
	case !typeSeen:
		return vc.Credential{}, fmt.Errorf("missing vc_type")
	case !issuerSeen:
		return vc.Credential{}, fmt.Errorf("missing issuer")
	case !subjSeen:
		return vc.Credential{}, fmt.Errorf("missing credential_subject")
	}
	if err := schema.require(); err != nil {
		return vc.Credential{}, err
	}
	if err := c.Validate(); err != nil {
		return vc.Credential{}, err
	}
	return c, nil
}

func encodeStatus(s vc.Status) ([]byte, error) {
	var m message
	m.optionalString(statusIDField, s.ID.String())
	types, err := encodeTypes(s.Type)
	if err != nil {
		return nil, fmt.Errorf("credential status: %w", err)
	}
	m.bytes(statusTypeField, types)
	return m, nil
}

func decodeStatus(b []byte) (vc.Status, error) {
	var (
		s        vc.Status
		typeSeen bool
	)
	err := fields(b, func(num protowire.Number, v []byte) error {
		var err error
		switch num {
		case statusIDField:
			s.ID, err = decodeURI(v)
		case statusTypeField:
			s.Type, err = decodeTypes(v, "status_type")
			typeSeen = true
		default:
			err = unknownField(num)
		}
		return err
	})
	if err != nil {
		return vc.Status{}, fmt.Errorf("credential status: %w", err)
	}
	if !typeSeen {
		return vc.Status{}, fmt.Errorf("credential status: missing status_type")
	}
	return s, nil
}

func encodeSchema(s vc.Schema) []byte {
	var m message
	m.string(schemaIDField, s.ID.String())
	m.string(schemaTypeField, s.Type)
	return m
}

func decodeSchema(b []byte) (vc.Schema, error) {
	var s vc.Schema
	err := fields(b, func(num protowire.Number, v []byte) error {
		var err error
		switch num {
		case schemaIDField:
			s.ID, err = decodeURI(v)
		case schemaTypeField:
			s.Type, err = decodeString(v)
		default:
			err = unknownField(num)
		}
		return err
	})
	if err != nil {
		return vc.Schema{}, fmt.Errorf("credential schema: %w", err)
	}
	return s, nil
}

// encodeSubject packs the subject as JSON text in a StringValue wrapped in
// an Any.
func encodeSubject(subject interface{}) ([]byte, error) {
	text, err := json.Marshal(subject)
	if err != nil {
		return nil, fmt.Errorf("credential subject: %w", err)
	}
	packed, err := anypb.New(wrapperspb.String(string(text)))
	if err != nil {
		return nil, fmt.Errorf("credential subject: %w", err)
	}
	return deterministic.Marshal(packed)
}

func decodeSubject(b []byte) (interface{}, error) {
	var packed anypb.Any
	if err := proto.Unmarshal(b, &packed); err != nil {
		return nil, fmt.Errorf("credential subject: %w", err)
	}
	var text wrapperspb.StringValue
	if err := packed.UnmarshalTo(&text); err != nil {
		return nil, fmt.Errorf("credential subject: %w", err)
	}
	var subject interface{}
	if err := json.Unmarshal([]byte(text.GetValue()), &subject); err != nil {
		return nil, fmt.Errorf("credential subject: %w", err)
	}
	return subject, nil
}
