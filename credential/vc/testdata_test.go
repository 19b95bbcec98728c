package vc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-vc-signing/credential/common/crypto"
)

const personSchemaID = "https://schemas.example.com/person/v1"

var fixedCreated = time.Date(2024, 8, 29, 11, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedCreated }

func personSchemaDocument() map[string]interface{} {
	return map[string]interface{}{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"$id":     personSchemaID,
		"type":    "object",
		"properties": map[string]interface{}{
			"id":         map[string]interface{}{"type": "string"},
			"name":       map[string]interface{}{"type": "string"},
			"created_at": map[string]interface{}{"type": "integer"},
		},
		"required": []interface{}{"id", "name"},
	}
}

func personSubject() map[string]interface{} {
	return map[string]interface{}{
		"id":         "did:example:alice",
		"name":       "Alice",
		"created_at": 1724929200,
	}
}

func generateKeys(t *testing.T, suite string) crypto.KeyPair {
	t.Helper()
	keys, err := crypto.GenerateKeyPair(suite, nil)
	require.NoError(t, err)
	return keys
}

// signedPersonSchema returns the person schema as a credential signed by a fresh issuer key.
func signedPersonSchema(t *testing.T) SignedSchema {
	t.Helper()
	keys := generateKeys(t, crypto.EdDSAJCS2022)

	schemaVC, err := CreateCredential(personSchemaDocument(), nil)
	require.NoError(t, err)

	signed, err := schemaVC.Sign(keys.PrivateKey, crypto.WithClock(fixedClock))
	require.NoError(t, err)

	return SignedSchema{Credential: signed, PublicKey: keys.PublicKey}
}
