package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	vcerrors "github.com/pilacorp/go-vc-signing/credential/common/errors"
	"github.com/pilacorp/go-vc-signing/credential/common/model"
	"github.com/pilacorp/go-vc-signing/credential/vc"
	"github.com/pilacorp/go-vc-signing/credential/vp"
)

// VerifiablePresentation field numbers.
const (
	vpIDField         protowire.Number = 1
	vpTypeField       protowire.Number = 2
	vpSingleVCField   protowire.Number = 3
	vpMultipleVCField protowire.Number = 4
	vpHolderField     protowire.Number = 5
	vpProofField      protowire.Number = 6
)

func marshalPresentation(p vp.Presentation) ([]byte, error) {
	b, err := encodePresentation(p)
	if err != nil {
		return nil, vcerrors.Ensure(vcerrors.CodeMalformedInput, err, "failed to encode protobuf presentation")
	}
	return b, nil
}

func unmarshalPresentation(data []byte) (vp.Presentation, error) {
	p, err := decodePresentation(data)
	if err != nil {
		return vp.Presentation{}, vcerrors.Wrap(vcerrors.CodeDecodeError, err, "failed to decode protobuf presentation")
	}
	return p, nil
}

func encodePresentation(p vp.Presentation) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var m message
	m.optionalString(vpIDField, p.ID.String())
	types, err := encodeTypes(p.Type)
	if err != nil {
		return nil, err
	}
	m.bytes(vpTypeField, types)

	if p.VerifiableCredential.IsMultiple() {
		var list message
		for i, c := range p.VerifiableCredential.Values() {
			b, err := encodeCredential(c)
			if err != nil {
				return nil, fmt.Errorf("credential %d: %w", i, err)
			}
			list.bytes(repeatedField, b)
		}
		m.bytes(vpMultipleVCField, list)
	} else {
		c, _ := p.VerifiableCredential.First()
		b, err := encodeCredential(c)
		if err != nil {
			return nil, err
		}
		m.bytes(vpSingleVCField, b)
	}

	m.optionalString(vpHolderField, p.Holder.String())
	if p.Proof != nil {
		b, err := encodeProof(*p.Proof)
		if err != nil {
			return nil, err
		}
		m.bytes(vpProofField, b)
	}
	return m, nil
}

func decodePresentation(data []byte) (vp.Presentation, error) {
	if len(data) == 0 {
		return vp.Presentation{}, fmt.Errorf("input is empty")
	}

	var (
		p        vp.Presentation
		creds    = oneof{name: "verifiable_credential"}
		typeSeen bool
	)
	err := fields(data, func(num protowire.Number, v []byte) error {
		var err error
		switch num {
		case vpIDField:
			p.ID, err = decodeURI(v)
		case vpTypeField:
			p.Type, err = decodeTypes(v, "vp_type")
			typeSeen = true
		case vpSingleVCField:
			if err = creds.see(num); err != nil {
				return err
			}
			var c vc.Credential
			if c, err = decodeCredential(v); err == nil {
				p.VerifiableCredential = model.Single(c)
			}
		case vpMultipleVCField:
			if err = creds.see(num); err != nil {
				return err
			}
			var list []vc.Credential
			err = fields(v, func(num protowire.Number, v []byte) error {
				if num != repeatedField {
					return unknownField(num)
				}
				c, err := decodeCredential(v)
				if err != nil {
					return fmt.Errorf("credential %d: %w", len(list), err)
				}
				list = append(list, c)
				return nil
			})
			p.VerifiableCredential = model.Multiple(list...)
		case vpHolderField:
			p.Holder, err = decodeURI(v)
		case vpProofField:
			var proof model.Proof
			if proof, err = decodeProof(v); err == nil {
				p.Proof = &proof
			}
		default:
			err = unknownField(num)
		}
		return err
	})
	if err != nil {
		return vp.Presentation{}, err
	}
	if !typeSeen {
		return vp.Presentation{}, fmt.Errorf("missing vp_type")
	}
	if err := creds.require(); err != nil {
		return vp.Presentation{}, err
	}
	if err := p.Validate(); err != nil {
		return vp.Presentation{}, err
	}
	return p, nil
}
