// Package cborcodec holds the CBOR encoding and decoding modes shared by
// every credential type, so nested documents encode identically no matter
// which package drives the encoder.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2) and writes
// timestamps as RFC 3339 text with nanoseconds. The decoder produces
// string-keyed maps for untyped values so decoded credential subjects look
// exactly like their JSON-decoded counterparts.
//
// Types shared with JSON keep `json` struct tags; fxamacker/cbor falls back
// to them when `cbor` tags are absent.
package cborcodec

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/pilacorp/go-vc-signing/credential/common/jsonmap"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCoreDeterministic,
		IndefLength:   cbor.IndefLengthForbidden,
		Time:          cbor.TimeRFC3339Nano,
		TimeTag:       cbor.EncTagNone,
		ShortestFloat: cbor.ShortestFloatNone,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cborcodec: invalid encoding options: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:      cbor.DupMapKeyEnforcedAPF,
		IndefLength:    cbor.IndefLengthForbidden,
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cborcodec: invalid decoding options: %v", err))
	}
}

// Marshal encodes v with the deterministic encoding mode.
func Marshal(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v interface{}) error {
	return decMode.Unmarshal(data, v)
}

// Wellformed checks that data holds exactly one well-formed CBOR data item
// and nothing after it.
func Wellformed(data []byte) error {
	return decMode.Wellformed(data)
}

// RawMessage is an undecoded CBOR item.
type RawMessage = cbor.RawMessage

// StrictUnmarshal decodes a CBOR map into v after checking its key set
// against allowed and required.
func StrictUnmarshal(data []byte, v interface{}, allowed, required []string) error {
	var fields map[string]RawMessage
	if err := Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("expected a CBOR map: %w", err)
	}
	if fields == nil {
		return fmt.Errorf("expected a CBOR map, got null")
	}
	if err := jsonmap.CheckKeys(fields, allowed, required); err != nil {
		return err
	}
	return Unmarshal(data, v)
}
