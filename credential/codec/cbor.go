package codec

import (
	"github.com/pilacorp/go-vc-signing/credential/common/cborcodec"
	vcerrors "github.com/pilacorp/go-vc-signing/credential/common/errors"
)

type validator interface {
	Validate() error
}

func encodeCBOR(v validator) ([]byte, error) {
	if err := v.Validate(); err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "failed to encode CBOR")
	}
	data, err := cborcodec.Marshal(v)
	if err != nil {
		return nil, vcerrors.Wrap(vcerrors.CodeMalformedInput, err, "failed to encode CBOR")
	}
	return data, nil
}

func decodeCBOR(data []byte, v interface{}) error {
	if len(data) == 0 {
		return vcerrors.New(vcerrors.CodeDecodeError, "CBOR input is empty")
	}
	if err := cborcodec.Wellformed(data); err != nil {
		return vcerrors.Wrap(vcerrors.CodeDecodeError, err, "failed to decode CBOR")
	}
	// Well-formed input that breaks the document model is malformed, as in JSON.
	if err := cborcodec.Unmarshal(data, v); err != nil {
		return vcerrors.Ensure(vcerrors.CodeMalformedInput, err, "invalid CBOR document")
	}
	return nil
}
