package vctoolcmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pilacorp/go-vc-signing/credential/codec"
)

func encodeCmd(st *state) *cobra.Command {
	var (
		in, out      string
		presentation bool
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Convert a document to another format",
		Long:  `Convert a credential or presentation read in any supported format to json, cbor or protobuf`,

		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := st.format(cmd)
			if err != nil {
				return err
			}
			return convert(cmd, in, out, format, presentation)
		},
	}
	cmd.Flags().StringVar(&in, InFlagName, "", "Path to the input document")
	cmd.Flags().StringVar(&out, OutFlagName, "", "Path to write the output (default stdout)")
	cmd.Flags().String(FormatFlagName, "", "Output format: json, cbor or protobuf (default from config)")
	cmd.Flags().BoolVar(&presentation, PresentationFlagName, false, "Treat the input as a presentation")
	_ = cmd.MarkFlagRequired(InFlagName)
	return cmd
}

func decodeCmd(_ *state) *cobra.Command {
	var (
		in, out      string
		presentation bool
	)

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a document to JSON",
		Long:  `Decode a CBOR or protobuf credential or presentation, detecting the format, and write it as JSON`,

		RunE: func(cmd *cobra.Command, args []string) error {
			return convert(cmd, in, out, codec.FormatJSON, presentation)
		},
	}
	cmd.Flags().StringVar(&in, InFlagName, "", "Path to the input document")
	cmd.Flags().StringVar(&out, OutFlagName, "", "Path to write the JSON output (default stdout)")
	cmd.Flags().BoolVar(&presentation, PresentationFlagName, false, "Treat the input as a presentation")
	_ = cmd.MarkFlagRequired(InFlagName)
	return cmd
}

func convert(cmd *cobra.Command, in, out string, to codec.Format, presentation bool) error {
	data, err := readFile(in)
	if err != nil {
		return err
	}

	var (
		encoded []byte
		from    codec.Format
	)
	if presentation {
		p, f, err := codec.DetectPresentation(data)
		if err != nil {
			return err
		}
		from = f
		if encoded, err = codec.EncodePresentation(p, to); err != nil {
			return err
		}
	} else {
		c, f, err := codec.DetectCredential(data)
		if err != nil {
			return err
		}
		from = f
		if encoded, err = codec.EncodeCredential(c, to); err != nil {
			return err
		}
	}
	slog.Info("converted document", "from", from, "to", to, "bytes", len(encoded))
	return writeOutput(cmd, out, encoded)
}
