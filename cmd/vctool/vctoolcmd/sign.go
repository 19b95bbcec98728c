package vctoolcmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pilacorp/go-vc-signing/credential/codec"
	"github.com/pilacorp/go-vc-signing/credential/common/crypto"
	"github.com/pilacorp/go-vc-signing/credential/vc"
)

func signCmd(st *state) *cobra.Command {
	var (
		in, out, keyPath, suite   string
		schemaPath, schemaKeyPath string
		presentation              bool
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a credential or presentation",
		Long: `Sign a credential or presentation read in any supported format. With --schema the credential
is first checked against the signed schema credential.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := st.format(cmd)
			if err != nil {
				return err
			}
			data, err := readFile(in)
			if err != nil {
				return err
			}
			key, err := readKey(keyPath)
			if err != nil {
				return err
			}
			var proofOpts []crypto.ProofOpt
			if suite != "" {
				proofOpts = append(proofOpts, crypto.WithCryptosuite(suite))
			}

			if presentation {
				p, _, err := codec.DetectPresentation(data)
				if err != nil {
					return err
				}
				signed, err := p.Sign(key, proofOpts...)
				if err != nil {
					return err
				}
				encoded, err := codec.EncodePresentation(signed, format)
				if err != nil {
					return err
				}
				slog.Info("signed presentation", "format", format)
				return writeOutput(cmd, out, encoded)
			}

			c, _, err := codec.DetectCredential(data)
			if err != nil {
				return err
			}
			if schemaPath != "" {
				trusted, err := loadSchema(schemaPath, schemaKeyPath)
				if err != nil {
					return err
				}
				if err := c.ValidateSchema(&trusted, vc.WithPolicy(st.cfg.VCPolicy())); err != nil {
					return err
				}
			}
			signed, err := c.Sign(key, proofOpts...)
			if err != nil {
				return err
			}
			encoded, err := codec.EncodeCredential(signed, format)
			if err != nil {
				return err
			}
			slog.Info("signed credential", "issuer", signed.Issuer, "format", format)
			return writeOutput(cmd, out, encoded)
		},
	}
	cmd.Flags().StringVar(&in, InFlagName, "", "Path to the document to sign")
	cmd.Flags().StringVar(&out, OutFlagName, "", "Path to write the signed document (default stdout)")
	cmd.Flags().String(FormatFlagName, "", "Output format: json, cbor or protobuf (default from config)")
	cmd.Flags().StringVar(&keyPath, KeyFlagName, "", "Path to the hex private key")
	cmd.Flags().StringVar(&suite, CryptosuiteFlagName, "", "Cryptosuite (default inferred from the key)")
	cmd.Flags().StringVar(&schemaPath, SchemaFlagName, "", "Path to the signed schema credential")
	cmd.Flags().StringVar(&schemaKeyPath, SchemaKeyFlagName, "", "Path to the schema issuer's hex public key")
	cmd.Flags().BoolVar(&presentation, PresentationFlagName, false, "Treat the input as a presentation")
	_ = cmd.MarkFlagRequired(InFlagName)
	_ = cmd.MarkFlagRequired(KeyFlagName)
	cmd.MarkFlagsRequiredTogether(SchemaFlagName, SchemaKeyFlagName)
	return cmd
}

// loadSchema reads a signed schema credential and its issuer key.
func loadSchema(schemaPath, keyPath string) (vc.SignedSchema, error) {
	data, err := readFile(schemaPath)
	if err != nil {
		return vc.SignedSchema{}, err
	}
	c, _, err := codec.DetectCredential(data)
	if err != nil {
		return vc.SignedSchema{}, fmt.Errorf("schema %s: %w", schemaPath, err)
	}
	key, err := readKey(keyPath)
	if err != nil {
		return vc.SignedSchema{}, err
	}
	return vc.SignedSchema{Credential: c, PublicKey: key}, nil
}
