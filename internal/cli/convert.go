package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/persistor/internal/model"
	"github.com/roach88/persistor/internal/persist"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	*RootOptions
	From   string // input format, default from extension
	To     string // output format, default from config
	Output string // output file; stdout when empty
}

// ConvertResult is the JSON payload of the convert command.
type ConvertResult struct {
	Input    string   `json:"input"`
	Output   string   `json:"output,omitempty"`
	Format   string   `json:"format"`
	Type     string   `json:"type"`
	Text     string   `json:"text,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "convert <document>",
		Short: "Re-encode a document in another format",
		Long: `Decode a JSON or XML document into its object graph and encode it again
as JSON, XML or flat properties.

Examples:
  persistor convert response.json --to xml
  persistor convert response.xml --to properties -o response.properties`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "input format (json|xml), default from extension")
	cmd.Flags().StringVar(&opts.To, "to", "", "output format (json|xml|properties), default from config")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runConvert(cmd *cobra.Command, opts *ConvertOptions, input string) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	to := opts.To
	if to == "" {
		to = opts.Config().GetString(persistFormatKey)
	}
	target := model.ParseFileFormat(to, opts.Logger())

	decoded, err := opts.decodeFile(ctx, input, opts.documentFormat(opts.From, input), nil)
	if err != nil {
		return f.Fail(errorCode(err), err)
	}

	result := ConvertResult{
		Input:    input,
		Format:   string(target),
		Type:     opts.Registry.TypeName(decoded.Root),
		Warnings: decoded.Warnings,
	}

	if opts.Output == "" {
		sp := persist.NewString(target, opts.Registry)
		if err := sp.Persist(ctx, decoded.Root); err != nil {
			return f.Fail(errorCode(err), err)
		}
		if opts.Format == "json" {
			result.Text = sp.String()
			return f.Success(result)
		}
		fmt.Fprint(f.Writer, sp.String())
		return nil
	}

	p, err := persist.New(persist.Config{
		Type:     model.TypeFile,
		Format:   target,
		Name:     opts.Output,
		Registry: opts.Registry,
		Logger:   opts.Logger(),
	})
	if err != nil {
		return f.Fail(errorCode(err), err)
	}
	if err := p.Persist(ctx, decoded.Root); err != nil {
		return f.Fail(errorCode(err), err)
	}
	result.Output = opts.Output

	if opts.Format == "json" {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "Wrote %s (%s, %s)\n", opts.Output, target, result.Type)
	for _, w := range decoded.Warnings {
		fmt.Fprintf(f.Writer, "  warning: %s\n", w)
	}
	return nil
}
