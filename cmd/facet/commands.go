package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/go-facet/args"
	"github.com/wippyai/go-facet/peek"
	"github.com/wippyai/go-facet/pretty"
	"github.com/wippyai/go-facet/wip"
)

var (
	typesCmd = &cobra.Command{
		Use:   "types",
		Short: "List the demo types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, name := range typeNames() {
				fmt.Fprintf(out, "%-10s %s\n", name, catalog[name].doc)
			}
			return nil
		},
	}

	shapeOpts = struct {
		depth int
	}{}

	shapeCmd = &cobra.Command{
		Use:   "shape <type>",
		Short: "Print the shape tree of a demo type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, argv []string) error {
			e, err := lookup(argv[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return pretty.FprintShape(out, e.shape, prettyOptions(out, shapeOpts.depth))
		},
	}

	convertOpts = struct {
		typ      string
		from     string
		to       string
		indent   string
		strict   bool
		compress bool
		sample   bool
	}{}

	convertCmd = &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert a demo record between formats",
		Long: `Decode a record of the given type from one format and encode it in another.
Input comes from the file argument or stdin; --sample encodes the built-in sample instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, argv []string) error {
			e, err := lookup(convertOpts.typ)
			if err != nil {
				return err
			}
			to, err := codecFor(convertOpts.to)
			if err != nil {
				return err
			}
			o := codecOptions{indent: convertOpts.indent, strict: convertOpts.strict, compress: convertOpts.compress}
			if convertOpts.sample {
				return to.encode(e.sample(), cmd.OutOrStdout(), o)
			}

			from, err := codecFor(convertOpts.from)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, argv)
			if err != nil {
				return err
			}
			hv, err := from.decode(e.shape, data, o)
			if err != nil {
				return fmt.Errorf("decode %s: %w", convertOpts.from, err)
			}
			defer hv.Drop()
			return to.encode(hv.Peek(), cmd.OutOrStdout(), o)
		},
	}

	inspectOpts = struct {
		typ   string
		from  string
		depth int
	}{}

	inspectCmd = &cobra.Command{
		Use:   "inspect [file]",
		Short: "Pretty-print a demo record",
		Long: `Pretty-print the sample value of a demo type, or a record decoded with --from
from the file argument or stdin. Sensitive fields are redacted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, argv []string) error {
			p, release, err := loadValue(cmd, inspectOpts.typ, inspectOpts.from, argv)
			if err != nil {
				return err
			}
			defer release()
			out := cmd.OutOrStdout()
			return pretty.Fprint(out, p, prettyOptions(out, inspectOpts.depth))
		},
	}

	argsOpts = struct {
		usage bool
	}{}

	argsCmd = &cobra.Command{
		Use:   "args [--usage] -- <arguments>",
		Short: "Parse command line arguments into the deploy type",
		Example: `  facet args -- api prod --replicas 3 --wait 90s --dry-run
  facet args --usage`,
		RunE: func(cmd *cobra.Command, argv []string) error {
			out := cmd.OutOrStdout()
			if argsOpts.usage {
				_, err := io.WriteString(out, args.Usage[deploy]())
				return err
			}
			d, err := args.Parse[deploy](argv)
			if err != nil {
				return err
			}
			return pretty.Fprint(out, peek.New(&d), prettyOptions(out, 0))
		},
	}
)

func init() {
	shapeCmd.Flags().IntVar(&shapeOpts.depth, "depth", 0, "Stop expanding after this many levels (0 for all)")

	f := convertCmd.Flags()
	f.StringVarP(&convertOpts.typ, "type", "t", "service", "Demo type to decode")
	f.StringVarP(&convertOpts.from, "from", "f", "json", "Input format: json, yaml or msgpack")
	f.StringVarP(&convertOpts.to, "to", "o", "yaml", "Output format: json, yaml or msgpack")
	f.StringVar(&convertOpts.indent, "indent", "", "Indent JSON output with this string")
	f.BoolVar(&convertOpts.strict, "strict", false, "Reject unknown fields")
	f.BoolVar(&convertOpts.compress, "compress", false, "Compress MessagePack output with zstd")
	f.BoolVar(&convertOpts.sample, "sample", false, "Encode the sample value instead of reading input")

	f = inspectCmd.Flags()
	f.StringVarP(&inspectOpts.typ, "type", "t", "service", "Demo type to inspect")
	f.StringVarP(&inspectOpts.from, "from", "f", "", "Decode input in this format instead of using the sample")
	f.IntVar(&inspectOpts.depth, "depth", 0, "Stop descending after this many levels (0 for all)")

	argsCmd.Flags().BoolVar(&argsOpts.usage, "usage", false, "Print the accepted arguments")
}

func prettyOptions(w io.Writer, depth int) pretty.Options {
	opts := pretty.DefaultOptions()
	opts.Color = !noColor && pretty.ColorEnabled(w)
	opts.MaxDepth = depth
	return opts
}

func readInput(cmd *cobra.Command, argv []string) ([]byte, error) {
	if len(argv) == 1 && argv[0] != "-" {
		data, err := os.ReadFile(argv[0])
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return data, nil
}

// loadValue returns the sample of typ, or a value decoded from input when format is set.
// release frees a decoded value.
func loadValue(cmd *cobra.Command, typ, format string, argv []string) (peek.Peek, func(), error) {
	e, err := lookup(typ)
	if err != nil {
		return peek.Peek{}, nil, err
	}
	if format == "" {
		return e.sample(), func() {}, nil
	}
	c, err := codecFor(format)
	if err != nil {
		return peek.Peek{}, nil, err
	}
	data, err := readInput(cmd, argv)
	if err != nil {
		return peek.Peek{}, nil, err
	}
	var hv *wip.HeapValue
	if hv, err = c.decode(e.shape, data, codecOptions{}); err != nil {
		return peek.Peek{}, nil, fmt.Errorf("decode %s: %w", format, err)
	}
	return hv.Peek(), hv.Drop, nil
}
