package codec

import (
	"fmt"
	"time"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/pilacorp/go-vc-signing/credential/common/model"
)

// Field numbers shared by several messages.
const (
	typeSingleField   protowire.Number = 1
	typeMultipleField protowire.Number = 2
	repeatedField     protowire.Number = 1

	proofTypeField    protowire.Number = 1
	proofCreatedField protowire.Number = 2
	proofSuiteField   protowire.Number = 3
	proofPurposeField protowire.Number = 4
	proofValueField   protowire.Number = 5
)

var deterministic = proto.MarshalOptions{Deterministic: true}

// message accumulates the encoded fields of one protobuf message.
type message []byte

func (m *message) bytes(num protowire.Number, v []byte) {
	*m = protowire.AppendTag(*m, num, protowire.BytesType)
	*m = protowire.AppendBytes(*m, v)
}

func (m *message) string(num protowire.Number, s string) {
	*m = protowire.AppendTag(*m, num, protowire.BytesType)
	*m = protowire.AppendString(*m, s)
}

// optionalString writes s unless it is empty.
func (m *message) optionalString(num protowire.Number, s string) {
	if s != "" {
		m.string(num, s)
	}
}

func (m *message) timestamp(num protowire.Number, t time.Time) error {
	b, err := deterministic.Marshal(timestamppb.New(t))
	if err != nil {
		return err
	}
	m.bytes(num, b)
	return nil
}

// fields walks the top-level fields of a message. Every field of this wire
// layout is length-delimited, so any other wire type is rejected.
func fields(b []byte, fn func(num protowire.Number, v []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if typ != protowire.BytesType {
			return fmt.Errorf("field %d: unexpected wire type %d", num, typ)
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
		if err := fn(num, v); err != nil {
			return err
		}
	}
	return nil
}

func unknownField(num protowire.Number) error {
	return fmt.Errorf("unknown field number %d", num)
}

func decodeString(v []byte) (string, error) {
	if !utf8.Valid(v) {
		return "", fmt.Errorf("string field is not valid UTF-8")
	}
	return string(v), nil
}

func decodeURI(v []byte) (model.URI, error) {
	s, err := decodeString(v)
	if err != nil {
		return "", err
	}
	return model.ParseURI(s)
}

func decodeTimestamp(v []byte) (time.Time, error) {
	var ts timestamppb.Timestamp
	if err := proto.Unmarshal(v, &ts); err != nil {
		return time.Time{}, err
	}
	if err := ts.CheckValid(); err != nil {
		return time.Time{}, err
	}
	return ts.AsTime().UTC(), nil
}

// oneof tracks which case of a oneof was seen.
type oneof struct {
	name string
	set  protowire.Number
}

func (o *oneof) see(num protowire.Number) error {
	if o.set != 0 && o.set != num {
		return fmt.Errorf("%s: more than one case of the oneof is set", o.name)
	}
	o.set = num
	return nil
}

func (o *oneof) require() error {
	if o.set == 0 {
		return fmt.Errorf("%s: no case of the oneof is set", o.name)
	}
	return nil
}

func encodeTypes(t model.OneOrMany[string]) ([]byte, error) {
	var m message
	switch {
	case t.IsZero():
		return nil, fmt.Errorf("type is not set")
	case t.IsMultiple():
		var list message
		for _, s := range t.Values() {
			list.string(repeatedField, s)
		}
		m.bytes(typeMultipleField, list)
	default:
		v, _ := t.First()
		m.string(typeSingleField, v)
	}
	return m, nil
}

func decodeTypes(b []byte, name string) (model.OneOrMany[string], error) {
	var (
		result model.OneOrMany[string]
		arm    = oneof{name: name}
	)
	err := fields(b, func(num protowire.Number, v []byte) error {
		switch num {
		case typeSingleField:
			if err := arm.see(num); err != nil {
				return err
			}
			s, err := decodeString(v)
			if err != nil {
				return err
			}
			result = model.Single(s)
		case typeMultipleField:
			if err := arm.see(num); err != nil {
				return err
			}
			var list []string
			err := fields(v, func(num protowire.Number, v []byte) error {
				if num != repeatedField {
					return unknownField(num)
				}
				s, err := decodeString(v)
				if err != nil {
					return err
				}
				list = append(list, s)
				return nil
			})
			if err != nil {
				return err
			}
			result = model.Multiple(list...)
		default:
			return unknownField(num)
		}
		return nil
	})
	if err != nil {
		return model.OneOrMany[string]{}, err
	}
	if err := arm.require(); err != nil {
		return model.OneOrMany[string]{}, err
	}
	return result, nil
}

func encodeProof(p model.Proof) ([]byte, error) {
	var m message
	m.string(proofTypeField, p.Type)
	if err := m.timestamp(proofCreatedField, p.Created); err != nil {
		return nil, err
	}
	m.string(proofSuiteField, p.Cryptosuite)
	m.string(proofPurposeField, p.ProofPurpose)
	m.bytes(proofValueField, p.ProofValue)
	return m, nil
}

func decodeProof(b []byte) (model.Proof, error) {
	var (
		p       model.Proof
		created bool
	)
	err := fields(b, func(num protowire.Number, v []byte) error {
		var err error
		switch num {
		case proofTypeField:
			p.Type, err = decodeString(v)
		case proofCreatedField:
			p.Created, err = decodeTimestamp(v)
			created = true
		case proofSuiteField:
			p.Cryptosuite, err = decodeString(v)
		case proofPurposeField:
			p.ProofPurpose, err = decodeString(v)
		case proofValueField:
			p.ProofValue = append([]byte{}, v...)
		default:
			err = unknownField(num)
		}
		return err
	})
	if err != nil {
		return model.Proof{}, fmt.Errorf("proof: %w", err)
	}
	switch {
	case p.Type == "":
		return model.Proof{}, fmt.Errorf("proof: missing proof_type")
	case !created:
		return model.Proof{}, fmt.Errorf("proof: missing created")
	case p.Cryptosuite == "":
		return model.Proof{}, fmt.Errorf("proof: missing cryptosuite")
	case p.ProofPurpose == "":
		return model.Proof{}, fmt.Errorf("proof: missing proof_purpose")
	case len(p.ProofValue) == 0:
		return model.Proof{}, fmt.Errorf("proof: missing proof_value")
	}
	return p, nil
}
