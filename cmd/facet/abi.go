package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero"

	"github.com/wippyai/go-facet/pretty"
	"github.com/wippyai/go-facet/witabi"
)

// scratchModule is a core module that exports one page of memory and nothing else.
var scratchModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x05, 0x03, 0x01, 0x00, 0x01,
	0x07, 0x0a, 0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
}

var (
	abiOpts = struct {
		typ  string
		from string
	}{}

	abiCmd = &cobra.Command{
		Use:   "abi [file]",
		Short: "Lower a demo record into wasm memory and lift it back",
		Long: `Map the type to its component model type, lower the value into the linear memory
of a scratch wazero instance in canonical ABI layout, dump the top-level block and lift it
back into a new value.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, argv []string) error {
			e, err := lookup(abiOpts.typ)
			if err != nil {
				return err
			}
			p, release, err := loadValue(cmd, abiOpts.typ, abiOpts.from, argv)
			if err != nil {
				return err
			}
			defer release()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			rt := wazero.NewRuntime(ctx)
			defer rt.Close(ctx)
			mod, err := rt.Instantiate(ctx, scratchModule)
			if err != nil {
				return fmt.Errorf("instantiate scratch module: %w", err)
			}
			mem := witabi.WrapMemory(mod.Memory())
			alloc := witabi.NewBump(1024, mod.Memory().Size())

			t, err := witabi.TypeOf(e.shape)
			if err != nil {
				return err
			}
			lay := witabi.NewCalculator().Calculate(t)

			l := witabi.NewLowerer(mem, alloc, witabi.DefaultOptions())
			addr, err := l.Lower(p)
			if err != nil {
				return err
			}
			defer l.Free()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "type:   %s\n", e.shape)
			fmt.Fprintf(out, "layout: size=%d align=%d\n", lay.Size, lay.Align)
			fmt.Fprintf(out, "lowered at %d using %d bytes in %d blocks\n", addr, alloc.Used(), l.Blocks())
			block, err := mem.Read(addr, lay.Size)
			if err != nil {
				return err
			}
			fmt.Fprint(out, hex.Dump(block))

			hv, err := witabi.NewLifter(mem, witabi.DefaultOptions()).LiftShape(e.shape, addr)
			if err != nil {
				return err
			}
			defer hv.Drop()
			fmt.Fprintln(out, "lifted:")
			return pretty.Fprint(out, hv.Peek(), prettyOptions(out, 0))
		},
	}
)

func init() {
	f := abiCmd.Flags()
	f.StringVarP(&abiOpts.typ, "type", "t", "service", "Demo type to lower")
	f.StringVarP(&abiOpts.from, "from", "f", "", "Decode input in this format instead of using the sample")
}
