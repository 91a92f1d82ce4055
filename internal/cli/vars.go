package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/persistor/internal/codec"
	"github.com/roach88/persistor/internal/model"
	"github.com/roach88/persistor/internal/persist"
	"github.com/roach88/persistor/internal/varstore"
)

// VarsOptions holds flags shared by the vars subcommands.
type VarsOptions struct {
	*RootOptions
	Store  storeFlags
	Prefix string
	From   string
}

// VarsResult is the JSON payload of the vars subcommands.
type VarsResult struct {
	Prefix    string              `json:"prefix,omitempty"`
	Variables []varstore.Variable `json:"variables,omitempty"`
	Count     int                 `json:"count"`
}

// NewVarsCommand creates the vars command and its subcommands.
func NewVarsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VarsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "vars",
		Short: "Manage runtime variables",
		Long: `Store documents as runtime variables and inspect the variable store.

Each flattened field becomes one variable named <prefix>.<key>. Variables
resolve ${name} references in benchmarks verified with --vars.

The store is the SQLite database named by --db (or vars.db in the config),
or the Redis hash at --redis when an address is given.`,
	}
	addStoreFlags(cmd, &opts.Store, true)

	put := &cobra.Command{
		Use:   "put <document>",
		Short: "Store every field of a document as a variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVarsPut(cmd, opts, args[0])
		},
	}
	put.Flags().StringVar(&opts.Prefix, "prefix", "", "variable name prefix")
	put.Flags().StringVar(&opts.From, "from", "", "input format (json|xml), default from extension")

	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Print one variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVarsGet(cmd, opts, args[0])
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVarsList(cmd, opts)
		},
	}
	list.Flags().StringVar(&opts.Prefix, "prefix", "", "only variables at or below this prefix")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete the variables at or below a prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVarsDelete(cmd, opts)
		},
	}
	del.Flags().StringVar(&opts.Prefix, "prefix", "", "variable name prefix (required)")
	_ = del.MarkFlagRequired("prefix")

	cmd.AddCommand(put, get, list, del)
	return cmd
}

func runVarsPut(cmd *cobra.Command, opts *VarsOptions, path string) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	decoded, err := opts.decodeFile(ctx, path, opts.documentFormat(opts.From, path), nil)
	if err != nil {
		return f.Fail(errorCode(err), err)
	}

	store, err := opts.openStore(ctx, &opts.Store)
	if err != nil {
		return f.Fail(ErrCodeStore, err)
	}
	defer store.Close()

	p, err := persist.New(persist.Config{
		Type:     model.TypeVariable,
		Name:     opts.Prefix,
		Store:    store,
		Registry: opts.Registry,
		Logger:   opts.Logger(),
	})
	if err != nil {
		return f.Fail(errorCode(err), err)
	}
	if err := p.Persist(ctx, decoded.Root); err != nil {
		return f.Fail(errorCode(err), err)
	}

	listPrefix := model.SimpleName(decoded.Root)
	if opts.Prefix != "" {
		listPrefix = opts.Prefix + codec.KeySeparator + listPrefix
	}
	vars, err := store.List(ctx, listPrefix)
	if err != nil {
		return f.Fail(ErrCodeStore, err)
	}

	if opts.Format == "json" {
		return f.Success(VarsResult{Prefix: listPrefix, Variables: vars, Count: len(vars)})
	}
	fmt.Fprintf(f.Writer, "Stored %d variable(s) under %s\n", len(vars), listPrefix)
	return nil
}

func runVarsGet(cmd *cobra.Command, opts *VarsOptions, name string) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	store, err := opts.openStore(ctx, &opts.Store)
	if err != nil {
		return f.Fail(ErrCodeStore, err)
	}
	defer store.Close()

	value, ok, err := store.Get(ctx, name)
	if err != nil {
		return f.Fail(ErrCodeStore, err)
	}
	if !ok {
		return f.Fail(ErrCodeNotFound, NewExitError(ExitFailure, fmt.Sprintf("variable %s is not set", name)))
	}

	if opts.Format == "json" {
		return f.Success(varstore.Variable{Name: name, Value: value})
	}
	fmt.Fprintln(f.Writer, value)
	return nil
}

func runVarsList(cmd *cobra.Command, opts *VarsOptions) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	store, err := opts.openStore(ctx, &opts.Store)
	if err != nil {
		return f.Fail(ErrCodeStore, err)
	}
	defer store.Close()

	vars, err := store.List(ctx, opts.Prefix)
	if err != nil {
		return f.Fail(ErrCodeStore, err)
	}

	if opts.Format == "json" {
		return f.Success(VarsResult{Prefix: opts.Prefix, Variables: vars, Count: len(vars)})
	}
	if len(vars) == 0 {
		fmt.Fprintln(f.Writer, "No variables.")
		return nil
	}
	rows := make([][]string, 0, len(vars))
	for _, v := range vars {
		rows = append(rows, []string{v.Name, v.Value})
	}
	f.Table([]string{"Name", "Value"}, rows)
	return nil
}

func runVarsDelete(cmd *cobra.Command, opts *VarsOptions) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	store, err := opts.openStore(ctx, &opts.Store)
	if err != nil {
		return f.Fail(ErrCodeStore, err)
	}
	defer store.Close()

	n, err := store.DeletePrefix(ctx, opts.Prefix)
	if err != nil {
		return f.Fail(ErrCodeStore, err)
	}

	if opts.Format == "json" {
		return f.Success(VarsResult{Prefix: opts.Prefix, Count: n})
	}
	fmt.Fprintf(f.Writer, "Deleted %d variable(s) under %s\n", n, opts.Prefix)
	return nil
}
