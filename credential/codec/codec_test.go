package codec

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/pilacorp/go-vc-signing/credential/common/cborcodec"
	"github.com/pilacorp/go-vc-signing/credential/common/crypto"
	vcerrors "github.com/pilacorp/go-vc-signing/credential/common/errors"
	"github.com/pilacorp/go-vc-signing/credential/common/model"
	"github.com/pilacorp/go-vc-signing/credential/vc"
	"github.com/pilacorp/go-vc-signing/credential/vp"
)

const personSchemaID = "https://schemas.example.com/person/v1"

var fixedCreated = time.Date(2024, 8, 29, 11, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedCreated }

func minimalCredential(t *testing.T) vc.Credential {
	t.Helper()
	b, err := vc.NewBuilder(map[string]interface{}{
		"id":         "did:example:alice",
		"name":       "Alice",
		"created_at": 1724929200,
	}, personSchemaID)
	require.NoError(t, err)
	return b.Build()
}

func fullCredential(t *testing.T) vc.Credential {
	t.Helper()
	b, err := vc.NewBuilder(map[string]interface{}{
		"id":      "did:example:bob",
		"degrees": []interface{}{"BSc", "MSc"},
		"address": map[string]interface{}{"city": "Hanoi", "zip": nil},
		"active":  true,
		"score":   97.5,
	}, personSchemaID)
	require.NoError(t, err)

	require.NoError(t, b.SetIssuer("did:example:issuer"))
	require.NoError(t, b.AddContext("https://www.w3.org/ns/credentials/examples/v2"))
	require.NoError(t, b.SetTypes("VerifiableCredential", "UniversityDegreeCredential"))
	require.NoError(t, b.SetValidFrom(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, b.SetValidUntil(time.Date(2030, 1, 1, 0, 0, 0, 500, time.UTC)))
	require.NoError(t, b.SetStatus(model.Multiple(
		vc.Status{ID: "https://status.example.com/1#94567", Type: model.Single("BitstringStatusListEntry")},
		vc.Status{Type: model.Multiple("StatusA", "StatusB")},
	)))
	b.SetName("Degree").SetDescription("A university degree")

	c := b.Build()
	c.CredentialSchema = model.Multiple(
		vc.Schema{ID: personSchemaID, Type: vc.JSONSchemaType},
		vc.Schema{ID: "https://schemas.example.com/degree/v1", Type: vc.JSONSchemaType},
	)
	return c
}

func signed(t *testing.T, c vc.Credential, suite string) (vc.Credential, crypto.KeyPair) {
	t.Helper()
	keys, err := crypto.GenerateKeyPair(suite, nil)
	require.NoError(t, err)
	s, err := c.Sign(keys.PrivateKey, crypto.WithClock(fixedClock))
	require.NoError(t, err)
	return s, keys
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "json", want: FormatJSON},
		{input: "CBOR", want: FormatCBOR},
		{input: " protobuf ", want: FormatProtobuf},
		{input: "proto", want: FormatProtobuf},
		{input: "yaml", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.True(t, errors.Is(err, vcerrors.ErrMalformedInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCredentialRoundTrip(t *testing.T) {
	signedFull, fullKeys := signed(t, fullCredential(t), crypto.ECDSAJCS2019)
	signedMinimal, minimalKeys := signed(t, minimalCredential(t), crypto.ECDSASecp256k1JCS2019)

	tests := []struct {
		name      string
		cred      vc.Credential
		publicKey []byte
	}{
		{name: "minimal unsigned", cred: minimalCredential(t)},
		{name: "full unsigned", cred: fullCredential(t)},
		{name: "minimal signed", cred: signedMinimal, publicKey: minimalKeys.PublicKey},
		{name: "full signed", cred: signedFull, publicKey: fullKeys.PublicKey},
	}

	for _, tt := range tests {
		for _, f := range Formats {
			t.Run(tt.name+"/"+f.String(), func(t *testing.T) {
				data, err := EncodeCredential(tt.cred, f)
				require.NoError(t, err)

				decoded, err := DecodeCredential(data, f)
				require.NoError(t, err)
				assert.Equal(t, tt.cred, decoded)

				again, err := EncodeCredential(decoded, f)
				require.NoError(t, err)
				assert.Equal(t, data, again)

				if tt.publicKey != nil {
					assert.NoError(t, decoded.Verify(tt.publicKey))
				}
			})
		}
	}
}

func TestProtobufPreservesSignedJSON(t *testing.T) {
	b, err := vc.NewBuilder(map[string]interface{}{"id": "example_id", "created_at": 1724929200}, personSchemaID)
	require.NoError(t, err)
	cred, keys := signed(t, b.Build(), crypto.EdDSAJCS2022)
	original, err := cred.Serialize()
	require.NoError(t, err)

	data, err := EncodeCredential(cred, FormatProtobuf)
	require.NoError(t, err)
	decoded, err := DecodeCredential(data, FormatProtobuf)
	require.NoError(t, err)

	restored, err := decoded.Serialize()
	require.NoError(t, err)
	assert.Equal(t, string(original), string(restored))

	parsed, err := vc.ParseCredential(restored, vc.WithVerifyProof(keys.PublicKey))
	require.NoError(t, err)
	assert.Equal(t, 1724929200.0, parsed.CredentialSubject.(map[string]interface{})["created_at"])
}

func TestProtobufShapesSurvive(t *testing.T) {
	c := minimalCredential(t)
	c.Type = model.Multiple(vc.VerifiableCredentialType)

	data, err := EncodeCredential(c, FormatProtobuf)
	require.NoError(t, err)
	decoded, err := DecodeCredential(data, FormatProtobuf)
	require.NoError(t, err)

	assert.True(t, decoded.Type.IsMultiple())
	assert.False(t, decoded.CredentialSchema.IsMultiple())
	assert.Nil(t, decoded.CredentialStatus)
	assert.Nil(t, decoded.ValidFrom)
	assert.Nil(t, decoded.Proof)
}

func TestProtobufRejectsMalformedInput(t *testing.T) {
	valid, err := EncodeCredential(minimalCredential(t), FormatProtobuf)
	require.NoError(t, err)

	withField := func(num protowire.Number, typ protowire.Type, value []byte) []byte {
		b := append([]byte{}, valid...)
		b = protowire.AppendTag(b, num, typ)
		if typ == protowire.VarintType {
			return protowire.AppendVarint(b, 1)
		}
		return protowire.AppendBytes(b, value)
	}
	secondSchema := encodeSchema(vc.Schema{ID: personSchemaID, Type: vc.JSONSchemaType})
	var list message
	list.bytes(repeatedField, secondSchema)

	tests := []struct {
		name     string
		input    []byte
		errorMsg string
	}{
		{name: "empty", input: nil, errorMsg: "input is empty"},
		{name: "truncated", input: valid[:len(valid)-3]},
		{name: "unknown field", input: withField(15, protowire.BytesType, []byte("x")), errorMsg: "unknown field number 15"},
		{name: "wrong wire type", input: withField(4, protowire.VarintType, nil), errorMsg: "unexpected wire type"},
		{name: "both schema cases", input: withField(vcMultipleSchemaField, protowire.BytesType, list), errorMsg: "credential_schema: more than one case"},
		{name: "bad utf8", input: withField(vcNameField, protowire.BytesType, []byte{0xff, 0xfe}), errorMsg: "not valid UTF-8"},
		{name: "bad proof", input: withField(vcProofField, protowire.BytesType, nil), errorMsg: "proof: missing"},
		{name: "json text", input: []byte(`{"type":"VerifiableCredential"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCredential(tt.input, FormatProtobuf)
			require.Error(t, err)
			assert.True(t, errors.Is(err, vcerrors.ErrDecodeError))
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestProtobufRequiresSchemaCase(t *testing.T) {
	var m message
	m.string(vcContextField, vc.DefaultContext)
	types, err := encodeTypes(model.Single(vc.VerifiableCredentialType))
	require.NoError(t, err)
	m.bytes(vcTypeField, types)
	m.string(vcIssuerField, "did:example:issuer")
	subject, err := encodeSubject(map[string]interface{}{"id": "did:example:alice"})
	require.NoError(t, err)
	m.bytes(vcSubjectField, subject)

	_, err = DecodeCredential(m, FormatProtobuf)
	assert.True(t, errors.Is(err, vcerrors.ErrDecodeError))
	assert.Contains(t, err.Error(), "credential_schema: no case of the oneof is set")
}

func TestEncodeRejectsInvalidCredential(t *testing.T) {
	for _, f := range []Format{FormatCBOR, FormatProtobuf} {
		t.Run(f.String(), func(t *testing.T) {
			_, err := EncodeCredential(vc.Credential{}, f)
			assert.True(t, errors.Is(err, vcerrors.ErrMalformedInput))
		})
	}

	_, err := EncodeCredential(minimalCredential(t), Format("xml"))
	assert.True(t, errors.Is(err, vcerrors.ErrMalformedInput))
}

func TestCBORRejectsMalformedInput(t *testing.T) {
	valid := mustCBOR(t, minimalCredential(t))

	withKey := func(key string, value interface{}) []byte {
		var doc map[string]interface{}
		require.NoError(t, cborcodec.Unmarshal(valid, &doc))
		doc[key] = value
		data, err := cborcodec.Marshal(doc)
		require.NoError(t, err)
		return data
	}

	tests := []struct {
		name     string
		input    []byte
		wantErr  error
		errorMsg string
	}{
		{name: "empty", input: nil, wantErr: vcerrors.ErrDecodeError, errorMsg: "CBOR input is empty"},
		{name: "truncated", input: valid[:len(valid)-3], wantErr: vcerrors.ErrDecodeError},
		{name: "trailing bytes", input: append(append([]byte{}, valid...), 0x00), wantErr: vcerrors.ErrDecodeError},
		{name: "not a map", input: []byte{0x01}, wantErr: vcerrors.ErrMalformedInput, errorMsg: "expected a CBOR map"},
		{name: "unknown top level key", input: withKey("evidence", map[string]interface{}{}), wantErr: vcerrors.ErrMalformedInput, errorMsg: `unknown field(s) "evidence"`},
		{name: "empty context", input: withKey("@context", []interface{}{}), wantErr: vcerrors.ErrMalformedInput, errorMsg: "@context must hold at least one URI"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCredential(tt.input, FormatCBOR)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), err.Error())
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestSelfDescribingFormatsAgreeOnUnknownKeys(t *testing.T) {
	raw, err := EncodeCredential(minimalCredential(t), FormatJSON)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	doc["evidence"] = "x"

	jsonInput, err := json.Marshal(doc)
	require.NoError(t, err)
	cborInput, err := cborcodec.Marshal(doc)
	require.NoError(t, err)

	for f, input := range map[Format][]byte{FormatJSON: jsonInput, FormatCBOR: cborInput} {
		_, err := DecodeCredential(input, f)
		assert.Equal(t, vcerrors.CodeMalformedInput, vcerrors.CodeOf(err), f.String())
	}
}

func mustCBOR(t *testing.T, c vc.Credential) []byte {
	t.Helper()
	data, err := EncodeCredential(c, FormatCBOR)
	require.NoError(t, err)
	return data
}

func TestDetectCredential(t *testing.T) {
	cred, _ := signed(t, fullCredential(t), crypto.EdDSAJCS2022)

	for _, f := range Formats {
		t.Run(f.String(), func(t *testing.T) {
			data, err := EncodeCredential(cred, f)
			require.NoError(t, err)

			decoded, detected, err := DetectCredential(data)
			require.NoError(t, err)
			assert.Equal(t, f, detected)
			assert.Equal(t, cred, decoded)
		})
	}

	_, _, err := DetectCredential([]byte("not a credential"))
	assert.True(t, errors.Is(err, vcerrors.ErrDecodeError))
}

func TestPresentationRoundTrip(t *testing.T) {
	alice, _ := signed(t, minimalCredential(t), crypto.EdDSAJCS2022)
	bob, _ := signed(t, fullCredential(t), crypto.ECDSASecp256k1JCS2019)
	holder, err := crypto.GenerateKeyPair(crypto.ECDSAJCS2019, nil)
	require.NoError(t, err)

	single, err := vp.NewPresentation("did:example:holder", alice)
	require.NoError(t, err)
	multiple, err := vp.NewPresentation("", alice, bob)
	require.NoError(t, err)
	signedMultiple, err := multiple.Sign(holder.PrivateKey, crypto.WithClock(fixedClock))
	require.NoError(t, err)

	tests := []struct {
		name      string
		pres      vp.Presentation
		publicKey []byte
	}{
		{name: "single", pres: single},
		{name: "multiple signed", pres: signedMultiple, publicKey: holder.PublicKey},
	}

	for _, tt := range tests {
		for _, f := range Formats {
			t.Run(tt.name+"/"+f.String(), func(t *testing.T) {
				data, err := EncodePresentation(tt.pres, f)
				require.NoError(t, err)

				decoded, err := DecodePresentation(data, f)
				require.NoError(t, err)
				assert.Equal(t, tt.pres, decoded)
				assert.Equal(t, tt.pres.VerifiableCredential.IsMultiple(), decoded.VerifiableCredential.IsMultiple())

				if tt.publicKey != nil {
					assert.NoError(t, decoded.Verify(tt.publicKey))
				}

				detected, format, err := DetectPresentation(data)
				require.NoError(t, err)
				assert.Equal(t, f, format)
				assert.Equal(t, tt.pres, detected)
			})
		}
	}
}

func TestProtobufPresentationRejectsBothCases(t *testing.T) {
	alice := minimalCredential(t)
	p, err := vp.NewPresentation("", alice)
	require.NoError(t, err)
	data, err := EncodePresentation(p, FormatProtobuf)
	require.NoError(t, err)

	inner, err := encodeCredential(alice)
	require.NoError(t, err)
	var list message
	list.bytes(repeatedField, inner)
	data = protowire.AppendTag(data, vpMultipleVCField, protowire.BytesType)
	data = protowire.AppendBytes(data, list)

	_, err = DecodePresentation(data, FormatProtobuf)
	assert.True(t, errors.Is(err, vcerrors.ErrDecodeError))
	assert.Contains(t, err.Error(), "verifiable_credential: more than one case")
}

func TestGenericEncodeDecode(t *testing.T) {
	c := minimalCredential(t)
	p, err := vp.NewPresentation("", c)
	require.NoError(t, err)

	data, err := Encode(&c, FormatCBOR)
	require.NoError(t, err)
	var decodedCred vc.Credential
	require.NoError(t, Decode(data, FormatCBOR, &decodedCred))
	assert.Equal(t, c, decodedCred)

	data, err = Encode(p, FormatProtobuf)
	require.NoError(t, err)
	var decodedPres vp.Presentation
	require.NoError(t, Decode(data, FormatProtobuf, &decodedPres))
	assert.Equal(t, p, decodedPres)

	_, err = Encode("credential", FormatJSON)
	assert.True(t, errors.Is(err, vcerrors.ErrMalformedInput))
	assert.True(t, errors.Is(Decode(data, FormatProtobuf, decodedPres), vcerrors.ErrMalformedInput))
	assert.True(t, errors.Is(Decode(data, FormatProtobuf, &decodedCred), vcerrors.ErrDecodeError))
}
