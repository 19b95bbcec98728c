package vc

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-vc-signing/credential/common/crypto"
	vcerrors "github.com/pilacorp/go-vc-signing/credential/common/errors"
	"github.com/pilacorp/go-vc-signing/credential/common/model"
)

const validJSON = `{
	"@context": ["https://www.w3.org/ns/credentials/v2"],
	"id": "urn:uuid:0b1b5c1e-4a8f-4c53-9a2c-1f1e5d3b2a10",
	"type": ["VerifiableCredential", "PersonCredential"],
	"issuer": "did:example:issuer",
	"validFrom": "2024-08-29T18:00:00+07:00",
	"credentialStatus": {"id": "https://status.example.com/1", "type": "StatusList2021Entry"},
	"credentialSchema": {"id": "https://schemas.example.com/person/v1", "type": "JsonSchema"},
	"credentialSubject": {"id": "did:example:alice", "name": "Alice"}
}`

func TestParseCredential(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectError bool
		errorMsg    string
	}{
		{name: "valid credential", input: validJSON},
		{name: "empty input", input: "", expectError: true, errorMsg: "JSON string is empty"},
		{name: "not an object", input: `[1,2]`, expectError: true, errorMsg: "expected a JSON object"},
		{
			name:        "unknown top level key",
			input:       strings.Replace(validJSON, `"issuer"`, `"evidence": {}, "issuer"`, 1),
			expectError: true,
			errorMsg:    `unknown field(s) "evidence"`,
		},
		{
			name:        "unknown schema key",
			input:       strings.Replace(validJSON, `"type": "JsonSchema"}`, `"type": "JsonSchema", "digest": "x"}`, 1),
			expectError: true,
			errorMsg:    `unknown field(s) "digest"`,
		},
		{
			name:        "empty context",
			input:       strings.Replace(validJSON, `["https://www.w3.org/ns/credentials/v2"]`, `[]`, 1),
			expectError: true,
			errorMsg:    "@context must hold at least one URI",
		},
		{
			name:        "missing issuer",
			input:       strings.Replace(validJSON, `"issuer": "did:example:issuer",`, "", 1),
			expectError: true,
			errorMsg:    `missing required field(s) "issuer"`,
		},
		{
			name:        "malformed issuer URL",
			input:       strings.Replace(validJSON, `"did:example:issuer"`, `"not a url"`, 1),
			expectError: true,
			errorMsg:    "missing scheme",
		},
		{
			name:        "type is a number",
			input:       strings.Replace(validJSON, `["VerifiableCredential", "PersonCredential"]`, `7`, 1),
			expectError: true,
			errorMsg:    "neither single nor list shape",
		},
		{
			name:        "jws proof is not accepted",
			input:       strings.Replace(validJSON, `"issuer"`, `"proof": {"type": "JsonWebSignature2020", "jws": "abc"}, "issuer"`, 1),
			expectError: true,
			errorMsg:    "invalid proof",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCredential([]byte(tt.input))
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, errors.Is(err, vcerrors.ErrMalformedInput))
				assert.Contains(t, err.Error(), tt.errorMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.Multiple("VerifiableCredential", "PersonCredential"), c.Type)
			assert.Equal(t, model.URI("did:example:issuer"), c.Issuer)
			assert.False(t, c.CredentialSchema.IsMultiple())
		})
	}
}

func TestParseCredentialNormalizesTimesToUTC(t *testing.T) {
	c, err := ParseCredential([]byte(validJSON))
	require.NoError(t, err)

	require.NotNil(t, c.ValidFrom)
	assert.Equal(t, time.Date(2024, 8, 29, 11, 0, 0, 0, time.UTC), *c.ValidFrom)

	out, err := c.Serialize()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"validFrom":"2024-08-29T11:00:00Z"`)
}

func TestCredentialJSONRoundTripKeepsShape(t *testing.T) {
	c, err := ParseCredential([]byte(validJSON))
	require.NoError(t, err)

	out, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded Credential
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, c, decoded)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &raw))
	assert.IsType(t, []interface{}{}, raw["type"])
	assert.IsType(t, map[string]interface{}{}, raw["credentialSchema"])
	assert.IsType(t, map[string]interface{}{}, raw["credentialStatus"])
}

func TestSignAndVerify(t *testing.T) {
	for _, suite := range crypto.Names() {
		t.Run(suite, func(t *testing.T) {
			keys := generateKeys(t, suite)

			c, err := ParseCredential([]byte(validJSON))
			require.NoError(t, err)

			signed, err := c.Sign(keys.PrivateKey, crypto.WithClock(fixedClock))
			require.NoError(t, err)
			assert.Nil(t, c.Proof, "Sign must not modify the receiver")

			proof, err := signed.GetProof()
			require.NoError(t, err)
			assert.Equal(t, suite, proof.Cryptosuite)
			assert.Equal(t, model.AssertionMethod, proof.ProofPurpose)
			assert.Equal(t, fixedCreated, proof.Created)

			assert.NoError(t, signed.Verify(keys.PublicKey))

			raw, err := signed.Serialize()
			require.NoError(t, err)
			reparsed, err := ParseCredential(raw, WithVerifyProof(keys.PublicKey))
			require.NoError(t, err)
			assert.Equal(t, signed, reparsed)
		})
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	keys := generateKeys(t, crypto.EdDSAJCS2022)
	c, err := ParseCredential([]byte(validJSON))
	require.NoError(t, err)

	signed, err := c.Sign(keys.PrivateKey)
	require.NoError(t, err)

	tampered := signed
	tampered.CredentialSubject = map[string]interface{}{"id": "did:example:alice", "name": "Mallory"}
	assert.True(t, errors.Is(tampered.Verify(keys.PublicKey), vcerrors.ErrInvalidSignature))

	renamed := signed
	renamed.Name = "Renamed"
	assert.True(t, errors.Is(renamed.Verify(keys.PublicKey), vcerrors.ErrInvalidSignature))

	// Shape changes are signature relevant.
	reshaped := signed
	reshaped.CredentialSchema = model.Multiple(c.CredentialSchema.Values()...)
	assert.True(t, errors.Is(reshaped.Verify(keys.PublicKey), vcerrors.ErrInvalidSignature))
}

func TestVerifyRejectsOtherKey(t *testing.T) {
	keys := generateKeys(t, crypto.EdDSAJCS2022)
	other := generateKeys(t, crypto.EdDSAJCS2022)

	c, err := ParseCredential([]byte(validJSON))
	require.NoError(t, err)
	signed, err := c.Sign(keys.PrivateKey)
	require.NoError(t, err)

	assert.True(t, errors.Is(signed.Verify(other.PublicKey), vcerrors.ErrInvalidSignature))
}

func TestUnsignedCredential(t *testing.T) {
	c, err := ParseCredential([]byte(validJSON))
	require.NoError(t, err)

	_, err = c.GetProof()
	assert.True(t, errors.Is(err, vcerrors.ErrUnsigned))
	assert.EqualError(t, err, "[UNSIGNED] VC is unsigned")

	err = c.Verify([]byte("any key"))
	assert.True(t, errors.Is(err, vcerrors.ErrUnsigned))
}

func TestSignReplacesExistingProof(t *testing.T) {
	first := generateKeys(t, crypto.EdDSAJCS2022)
	second := generateKeys(t, crypto.ECDSAJCS2019)

	c, err := ParseCredential([]byte(validJSON))
	require.NoError(t, err)

	signed, err := c.Sign(first.PrivateKey)
	require.NoError(t, err)
	resigned, err := signed.Sign(second.PrivateKey)
	require.NoError(t, err)

	assert.NoError(t, resigned.Verify(second.PublicKey))
	assert.Error(t, resigned.Verify(first.PublicKey))
}

func TestSigningInputExcludesProof(t *testing.T) {
	keys := generateKeys(t, crypto.EdDSAJCS2022)
	c, err := ParseCredential([]byte(validJSON))
	require.NoError(t, err)

	unsignedInput, err := c.GetSigningInput()
	require.NoError(t, err)

	signed, err := c.Sign(keys.PrivateKey)
	require.NoError(t, err)
	signedInput, err := signed.GetSigningInput()
	require.NoError(t, err)

	assert.Equal(t, unsignedInput, signedInput)
	assert.NotContains(t, string(signedInput), "proof")
	assert.True(t, strings.HasPrefix(string(signedInput), `{"@context":`))
}

func TestSignWithBadKey(t *testing.T) {
	c, err := ParseCredential([]byte(validJSON))
	require.NoError(t, err)

	_, err = c.Sign([]byte("short"))
	assert.True(t, errors.Is(err, vcerrors.ErrKeyError))
}

func TestPolicyRequireCredentialStatus(t *testing.T) {
	withoutStatus := strings.Replace(validJSON,
		`"credentialStatus": {"id": "https://status.example.com/1", "type": "StatusList2021Entry"},`, "", 1)

	_, err := ParseCredential([]byte(withoutStatus))
	assert.NoError(t, err)

	_, err = ParseCredential([]byte(withoutStatus), WithPolicy(Policy{RequireCredentialStatus: true}))
	assert.True(t, errors.Is(err, vcerrors.ErrMalformedInput))

	_, err = ParseCredential([]byte(validJSON), WithPolicy(Policy{RequireCredentialStatus: true}))
	assert.NoError(t, err)
}

func TestConcurrentVerify(t *testing.T) {
	keys := generateKeys(t, crypto.EdDSAJCS2022)
	c, err := ParseCredential([]byte(validJSON))
	require.NoError(t, err)
	signed, err := c.Sign(keys.PrivateKey)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- signed.Verify(keys.PublicKey)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestValidateRejectsInvertedValidityWindow(t *testing.T) {
	input := strings.Replace(validJSON, `"validFrom": "2024-08-29T18:00:00+07:00",`,
		`"validFrom": "2024-08-29T18:00:00Z", "validUntil": "2024-08-01T00:00:00Z",`, 1)

	_, err := ParseCredential([]byte(input))
	assert.True(t, errors.Is(err, vcerrors.ErrMalformedInput))
	assert.Contains(t, err.Error(), "validUntil")
}
