package vctoolcmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pilacorp/go-vc-signing/credential/common/provider"
)

// URLFlagName is the flag name for the schema URL.
const URLFlagName = "url"

func fetchSchemaCmd(st *state) *cobra.Command {
	var schemaURL, out string

	cmd := &cobra.Command{
		Use:   "fetch-schema",
		Short: "Download a schema document",
		Long:  `Download a JSON or YAML schema document, resolving GitHub blob and tree links, and write it as JSON`,

		RunE: func(cmd *cobra.Command, args []string) error {
			p := provider.NewDefaultProvider(st.cfg.ProviderOptions()...)
			doc, err := p.SchemaResolver(cmd.Context(), schemaURL)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return fmt.Errorf("encode schema: %w", err)
			}
			return writeOutput(cmd, out, append(data, '\n'))
		},
	}
	cmd.Flags().StringVar(&schemaURL, URLFlagName, "", "Schema URL")
	cmd.Flags().StringVar(&out, OutFlagName, "", "Path to write the schema (default stdout)")
	_ = cmd.MarkFlagRequired(URLFlagName)
	return cmd
}
