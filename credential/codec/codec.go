// Package codec converts credentials and presentations between JSON, CBOR
// and the protobuf wire layout described in verifiable_credentials.proto.
//
// Every format round-trips losslessly: single/list shapes, absent optional
// fields and timestamps survive, so a proof made over one encoding verifies
// after conversion through any other.
package codec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	vcerrors "github.com/pilacorp/go-vc-signing/credential/common/errors"
	"github.com/pilacorp/go-vc-signing/credential/vc"
	"github.com/pilacorp/go-vc-signing/credential/vp"
)

// Format names a wire encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCBOR     Format = "cbor"
	FormatProtobuf Format = "protobuf"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatCBOR, FormatProtobuf}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCBOR:
		return FormatCBOR, nil
	case FormatProtobuf, "proto":
		return FormatProtobuf, nil
	default:
		return "", vcerrors.Newf(vcerrors.CodeMalformedInput, "unknown format %q (want json, cbor or protobuf)", s)
	}
}

func (f Format) String() string { return string(f) }

// EncodeCredential encodes c in format f.
func EncodeCredential(c vc.Credential, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return c.Serialize()
	case FormatCBOR:
		return encodeCBOR(c)
	case FormatProtobuf:
		return marshalCredential(c)
	default:
		return nil, vcerrors.Newf(vcerrors.CodeMalformedInput, "unknown format %q", f)
	}
}

// DecodeCredential decodes a credential encoded in format f.
func DecodeCredential(data []byte, f Format) (vc.Credential, error) {
	switch f {
	case FormatJSON:
		return vc.ParseCredential(data)
	case FormatCBOR:
		var c vc.Credential
		if err := decodeCBOR(data, &c); err != nil {
			return vc.Credential{}, err
		}
		return c, nil
	case FormatProtobuf:
		return unmarshalCredential(data)
	default:
		return vc.Credential{}, vcerrors.Newf(vcerrors.CodeMalformedInput, "unknown format %q", f)
	}
}

// EncodePresentation encodes p in format f.
func EncodePresentation(p vp.Presentation, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return p.Serialize()
	case FormatCBOR:
		return encodeCBOR(p)
	case FormatProtobuf:
		return marshalPresentation(p)
	default:
		return nil, vcerrors.Newf(vcerrors.CodeMalformedInput, "unknown format %q", f)
	}
}

// DecodePresentation decodes a presentation encoded in format f.
func DecodePresentation(data []byte, f Format) (vp.Presentation, error) {
	switch f {
	case FormatJSON:
		return vp.ParsePresentation(context.Background(), data)
	case FormatCBOR:
		var p vp.Presentation
		if err := decodeCBOR(data, &p); err != nil {
			return vp.Presentation{}, err
		}
		return p, nil
	case FormatProtobuf:
		return unmarshalPresentation(data)
	default:
		return vp.Presentation{}, vcerrors.Newf(vcerrors.CodeMalformedInput, "unknown format %q", f)
	}
}

// Encode encodes a vc.Credential or vp.Presentation (or a pointer to one) in format f.
func Encode(doc interface{}, f Format) ([]byte, error) {
	switch d := doc.(type) {
	case vc.Credential:
		return EncodeCredential(d, f)
	case *vc.Credential:
		if d != nil {
			return EncodeCredential(*d, f)
		}
	case vp.Presentation:
		return EncodePresentation(d, f)
	case *vp.Presentation:
		if d != nil {
			return EncodePresentation(*d, f)
		}
	}
	return nil, vcerrors.Newf(vcerrors.CodeMalformedInput, "cannot encode %T", doc)
}

// Decode decodes data in format f into doc, which must be a *vc.Credential
// or a *vp.Presentation.
func Decode(data []byte, f Format, doc interface{}) error {
	switch d := doc.(type) {
	case *vc.Credential:
		if d != nil {
			c, err := DecodeCredential(data, f)
			if err != nil {
				return err
			}
			*d = c
			return nil
		}
	case *vp.Presentation:
		if d != nil {
			p, err := DecodePresentation(data, f)
			if err != nil {
				return err
			}
			*d = p
			return nil
		}
	}
	return vcerrors.Newf(vcerrors.CodeMalformedInput, "cannot decode into %T", doc)
}

// DetectCredential decodes data trying protobuf, then CBOR, then JSON, and
// reports which format matched.
func DetectCredential(data []byte) (vc.Credential, Format, error) {
	var errs []string
	for _, f := range []Format{FormatProtobuf, FormatCBOR, FormatJSON} {
		c, err := DecodeCredential(data, f)
		if err == nil {
			slog.Debug("detected credential format", "format", f)
			return c, f, nil
		}
		errs = append(errs, fmt.Sprintf("%s: %v", f, err))
	}
	return vc.Credential{}, "", vcerrors.New(vcerrors.CodeDecodeError,
		"data is not a credential in any supported format: "+strings.Join(errs, "; "))
}

// DetectPresentation is DetectCredential for presentations.
func DetectPresentation(data []byte) (vp.Presentation, Format, error) {
	var errs []string
	for _, f := range []Format{FormatProtobuf, FormatCBOR, FormatJSON} {
		p, err := DecodePresentation(data, f)
		if err == nil {
			slog.Debug("detected presentation format", "format", f)
			return p, f, nil
		}
		errs = append(errs, fmt.Sprintf("%s: %v", f, err))
	}
	return vp.Presentation{}, "", vcerrors.New(vcerrors.CodeDecodeError,
		"data is not a presentation in any supported format: "+strings.Join(errs, "; "))
}
