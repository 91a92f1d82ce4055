package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/persistor/internal/codec"
	"github.com/roach88/persistor/internal/model"
	"github.com/roach88/persistor/internal/persist"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	From      string
	Tree      bool
	Threshold int
}

// ShowField is one flattened field.
type ShowField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ShowResult is the JSON payload of the show command.
type ShowResult struct {
	Document string      `json:"document"`
	Type     string      `json:"type,omitempty"`
	Fields   []ShowField `json:"fields"`
	Ignored  []string    `json:"ignored,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <document>",
		Short: "List the flattened fields of a document",
		Long: `Print every field of a document under its dotted key, as the verifier
sees it. Flat properties documents are listed as they are.

Examples:
  persistor show response.json
  persistor show response.xml --tree --threshold 40`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "input format (json|xml|properties), default from extension")
	cmd.Flags().BoolVar(&opts.Tree, "tree", false, "print the object tree instead of the flat table")
	cmd.Flags().IntVar(&opts.Threshold, "threshold", 0, "truncate tree values longer than this (0 keeps all)")

	return cmd
}

func runShow(cmd *cobra.Command, opts *ShowOptions, path string) error {
	f := opts.formatter(cmd)
	format := opts.documentFormat(opts.From, path)
	result := ShowResult{Document: path}

	var root model.Persistable
	if format == model.FormatProperties {
		if opts.Tree {
			return f.Fail(string(model.CodeUnsupported), model.NewUnsupportedError("a flat document has no object tree"))
		}
		flat, err := readFlatFile(path)
		if err != nil {
			return f.Fail(errorCode(err), err)
		}
		result.Fields = showFields(flat)
	} else {
		decoded, err := opts.decodeFile(cmd.Context(), path, format, nil)
		if err != nil {
			return f.Fail(errorCode(err), err)
		}
		root = decoded.Root
		result.Type = opts.Registry.TypeName(root)
		result.Warnings = decoded.Warnings

		flat, err := codec.Flatten(root, codec.FlattenOptions{Registry: opts.Registry, Logger: opts.Logger()})
		if err != nil {
			return f.Fail(errorCode(err), err)
		}
		result.Fields = showFields(flat)
		result.Ignored = flat.IgnoredPrefixes
	}

	if opts.Format == "json" {
		return f.Success(result)
	}
	if opts.Tree {
		fmt.Fprint(f.Writer, model.Dump(root, opts.Threshold))
		return nil
	}

	rows := make([][]string, 0, len(result.Fields))
	for _, field := range result.Fields {
		rows = append(rows, []string{field.Key, field.Value})
	}
	f.Table([]string{"Key", "Value"}, rows)
	for _, w := range result.Warnings {
		fmt.Fprintf(f.Writer, "warning: %s\n", w)
	}
	return nil
}

func readFlatFile(path string) (*codec.Flattened, error) {
	src := persist.FileSource{Path: path}
	r, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	flat, err := codec.ParseFlat(r)
	if err != nil {
		return nil, model.NewDecodeError(path, "malformed flat document", err)
	}
	return flat, nil
}

func showFields(flat *codec.Flattened) []ShowField {
	fields := make([]ShowField, 0, len(flat.Entries))
	for _, e := range flat.Entries {
		fields = append(fields, ShowField{Key: e.Key, Value: e.Value})
	}
	return fields
}
