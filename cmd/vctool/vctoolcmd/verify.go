package vctoolcmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pilacorp/go-vc-signing/credential/codec"
	vcerrors "github.com/pilacorp/go-vc-signing/credential/common/errors"
	"github.com/pilacorp/go-vc-signing/credential/common/model"
	"github.com/pilacorp/go-vc-signing/credential/vc"
	"github.com/pilacorp/go-vc-signing/credential/vp"
)

// IssuerKeyFlagName is the flag name for issuer=keyfile pairs used to verify
// the credentials inside a presentation.
const IssuerKeyFlagName = "issuer-key"

func verifyCmd(st *state) *cobra.Command {
	var (
		in, keyPath               string
		schemaPath, schemaKeyPath string
		issuerKeys                map[string]string
		presentation              bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a credential or presentation",
		Long: `Verify the proof of a credential or presentation read in any supported format. Credentials are
also checked against the configured policy and, with --schema, the signed schema credential.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readFile(in)
			if err != nil {
				return err
			}
			key, err := readKey(keyPath)
			if err != nil {
				return err
			}

			if presentation {
				p, format, err := codec.DetectPresentation(data)
				if err != nil {
					return err
				}
				if err := verifyPresentation(cmd.Context(), p, key, issuerKeys); err != nil {
					return err
				}
				slog.Info("verified presentation", "format", format, "credentials", p.VerifiableCredential.Len())
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "presentation verified")
				return err
			}

			c, format, err := codec.DetectCredential(data)
			if err != nil {
				return err
			}
			if err := c.Verify(key); err != nil {
				return err
			}
			policy := st.cfg.VCPolicy()
			if err := c.CheckPolicy(policy); err != nil {
				return err
			}
			if schemaPath != "" {
				trusted, err := loadSchema(schemaPath, schemaKeyPath)
				if err != nil {
					return err
				}
				if err := c.ValidateSchema(&trusted, vc.WithPolicy(policy)); err != nil {
					return err
				}
			}
			slog.Info("verified credential", "issuer", c.Issuer, "format", format)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "credential verified")
			return err
		},
	}
	cmd.Flags().StringVar(&in, InFlagName, "", "Path to the document to verify")
	cmd.Flags().StringVar(&keyPath, KeyFlagName, "", "Path to the signer's hex public key")
	cmd.Flags().StringVar(&schemaPath, SchemaFlagName, "", "Path to the signed schema credential")
	cmd.Flags().StringVar(&schemaKeyPath, SchemaKeyFlagName, "", "Path to the schema issuer's hex public key")
	cmd.Flags().StringToStringVar(&issuerKeys, IssuerKeyFlagName, nil, "issuer=keyfile pairs for the embedded credentials")
	cmd.Flags().BoolVar(&presentation, PresentationFlagName, false, "Treat the input as a presentation")
	_ = cmd.MarkFlagRequired(InFlagName)
	_ = cmd.MarkFlagRequired(KeyFlagName)
	cmd.MarkFlagsRequiredTogether(SchemaFlagName, SchemaKeyFlagName)
	return cmd
}

func verifyPresentation(ctx context.Context, p vp.Presentation, key []byte, issuerKeys map[string]string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := p.Verify(key); err != nil {
		return err
	}
	if len(issuerKeys) == 0 {
		return nil
	}

	keys := make(map[model.URI][]byte, len(issuerKeys))
	for issuer, path := range issuerKeys {
		key, err := readKey(path)
		if err != nil {
			return err
		}
		keys[model.URI(issuer)] = key
	}
	return p.VerifyCredentials(ctx, func(_ context.Context, issuer model.URI) ([]byte, error) {
		key, ok := keys[issuer]
		if !ok {
			return nil, vcerrors.Newf(vcerrors.CodeKeyError, "no key given for issuer %s", issuer)
		}
		return key, nil
	})
}
