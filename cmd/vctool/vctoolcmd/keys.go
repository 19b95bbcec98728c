package vctoolcmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pilacorp/go-vc-signing/credential/common/crypto"
)

const (
	// PrivateKeyFlagName is the flag name for the private key output path.
	PrivateKeyFlagName = "private-key"
	// PublicKeyFlagName is the flag name for the public key output path.
	PublicKeyFlagName = "public-key"
	// KeyEncodingFlagName is the flag name for the key file encoding.
	KeyEncodingFlagName = "key-encoding"
)

func genKeysCmd(st *state) *cobra.Command {
	var suite, privatePath, publicPath, encoding string

	cmd := &cobra.Command{
		Use:   "gen-keys",
		Short: "Generate a key pair",
		Long:  `Generate a key pair for one of the supported cryptosuites and write both halves to files, as raw key bytes or 0x-prefixed hex`,

		RunE: func(cmd *cobra.Command, args []string) error {
			if suite == "" {
				suite = st.cfg.Defaults.Cryptosuite
			}
			if encoding == "" {
				encoding = st.cfg.Defaults.KeyEncoding
			}
			keys, err := crypto.GenerateKeyPair(suite, nil)
			if err != nil {
				return err
			}
			if err := writeKey(privatePath, keys.PrivateKey, encoding, 0o600); err != nil {
				return err
			}
			if err := writeKey(publicPath, keys.PublicKey, encoding, 0o644); err != nil {
				return err
			}
			slog.Info("generated key pair", "cryptosuite", keys.Cryptosuite, "encoding", encoding)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s key pair written to %s and %s\n", keys.Cryptosuite, privatePath, publicPath)
			return err
		},
	}
	cmd.Flags().StringVar(&suite, CryptosuiteFlagName, "", fmt.Sprintf("Cryptosuite, one of %v (default from config)", crypto.Names()))
	cmd.Flags().StringVar(&privatePath, PrivateKeyFlagName, "", "Path to write the private key")
	cmd.Flags().StringVar(&publicPath, PublicKeyFlagName, "", "Path to write the public key")
	cmd.Flags().StringVar(&encoding, KeyEncodingFlagName, "", "Key file encoding, raw or hex (default from config)")
	_ = cmd.MarkFlagRequired(PrivateKeyFlagName)
	_ = cmd.MarkFlagRequired(PublicKeyFlagName)
	return cmd
}
