// Package vctoolcmd implements the vctool command tree.
package vctoolcmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/pilacorp/go-vc-signing/credential/codec"
	"github.com/pilacorp/go-vc-signing/internal/config"
	"github.com/pilacorp/go-vc-signing/internal/logger"
)

const (
	// ConfigFlagName is the flag name for the config file path.
	ConfigFlagName = "config"
	// ConfigFlagUsage is the usage text for the config flag.
	ConfigFlagUsage = "Path to the YAML config file (default $" + config.EnvPath + ")"

	// InFlagName is the flag name for the input document path.
	InFlagName = "in"
	// OutFlagName is the flag name for the output path. Output goes to stdout when empty.
	OutFlagName = "out"
	// FormatFlagName is the flag name for the output encoding.
	FormatFlagName = "format"
	// PresentationFlagName switches a command from credentials to presentations.
	PresentationFlagName = "presentation"
	// KeyFlagName is the flag name for a key file.
	KeyFlagName = "key"
	// CryptosuiteFlagName is the flag name for the cryptosuite.
	CryptosuiteFlagName = "cryptosuite"
	// SchemaFlagName is the flag name for a signed schema credential.
	SchemaFlagName = "schema"
	// SchemaKeyFlagName is the flag name for the schema issuer's public key.
	SchemaKeyFlagName = "schema-key"
)

// state is shared by the subcommands once the root has loaded config.
type state struct {
	cfg    *config.Config
	closer io.Closer
}

// Cmd returns the vctool root command.
func Cmd() *cobra.Command {
	st := &state{}

	rootCmd := &cobra.Command{
		Use:           "vctool",
		Short:         "Sign, verify and convert verifiable credentials",
		Long:          `Sign, verify and convert W3C verifiable credentials and presentations between JSON, CBOR and protobuf`,
		SilenceUsage:  true,
		SilenceErrors: false,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString(ConfigFlagName)
			if err != nil {
				return fmt.Errorf("config flag not found: %w", err)
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			closer, err := logger.Init(logger.Config{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				Output: cfg.Log.Output,
			})
			if err != nil {
				return err
			}
			st.cfg, st.closer = cfg, closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if st.closer != nil {
				return st.closer.Close()
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().String(ConfigFlagName, "", ConfigFlagUsage)

	rootCmd.AddCommand(
		genKeysCmd(st),
		signCmd(st),
		verifyCmd(st),
		encodeCmd(st),
		decodeCmd(st),
		fetchSchemaCmd(st),
	)
	return rootCmd
}

// format returns the --format flag or the configured default.
func (s *state) format(cmd *cobra.Command) (codec.Format, error) {
	name, err := cmd.Flags().GetString(FormatFlagName)
	if err != nil {
		return "", fmt.Errorf("format flag not found: %w", err)
	}
	if name == "" {
		name = s.cfg.Defaults.Format
	}
	return codec.ParseFormat(name)
}

func readFile(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("no input file given")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// readKey reads a key file. The file holds the raw key bytes, or the same
// bytes as 0x-prefixed hex text.
func readKey(path string) ([]byte, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("key file %s is empty", path)
	}
	if text := strings.TrimSpace(string(data)); strings.HasPrefix(text, "0x") {
		if key, err := hexutil.Decode(text); err == nil {
			return key, nil
		}
	}
	return data, nil
}

func writeKey(path string, key []byte, encoding string, mode os.FileMode) error {
	data := key
	switch encoding {
	case config.KeyEncodingRaw:
	case config.KeyEncodingHex:
		data = []byte(hexutil.Encode(key) + "\n")
	default:
		return fmt.Errorf("unknown key encoding %q, want %q or %q", encoding, config.KeyEncodingRaw, config.KeyEncodingHex)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
