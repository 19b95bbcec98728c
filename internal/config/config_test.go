package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-vc-signing/credential/common/crypto"
	"github.com/pilacorp/go-vc-signing/credential/vc"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vctool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvPath, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, crypto.EdDSAJCS2022, cfg.Defaults.Cryptosuite)
	assert.Equal(t, KeyEncodingRaw, cfg.Defaults.KeyEncoding)
	assert.Len(t, cfg.ProviderOptions(), 2)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
defaults:
  format: cbor
  cryptosuite: ecdsa-secp256k1-jcs-2019
  key_encoding: hex
policy:
  require_credential_status: true
  require_schema_id_match: true
provider:
  timeout: 3s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "stderr", cfg.Log.Output)
	assert.Equal(t, "cbor", cfg.Defaults.Format)
	assert.Equal(t, crypto.ECDSASecp256k1JCS2019, cfg.Defaults.Cryptosuite)
	assert.Equal(t, KeyEncodingHex, cfg.Defaults.KeyEncoding)
	assert.Equal(t, 3*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, vc.Policy{RequireCredentialStatus: true, RequireSchemaIDMatch: true}, cfg.VCPolicy())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(EnvPath, writeConfig(t, "defaults:\n  format: protobuf\n"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "protobuf", cfg.Defaults.Format)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		errorMsg string
	}{
		{name: "bad format", content: "defaults:\n  format: xml\n", errorMsg: "defaults.format"},
		{name: "bad suite", content: "defaults:\n  cryptosuite: rsa\n", errorMsg: "defaults.cryptosuite"},
		{name: "bad key encoding", content: "defaults:\n  key_encoding: pem\n", errorMsg: "defaults.key_encoding"},
		{name: "negative timeout", content: "provider:\n  timeout: -1s\n", errorMsg: "provider.timeout"},
		{name: "not yaml", content: "log: [", errorMsg: "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")
}
