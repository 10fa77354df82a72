package main

import (
	"fmt"
	"io"
	"strconv"

	"logwal/pkg/codec"

	"github.com/spf13/cobra"
)

func newWriteCmd(g *globalFlags) *cobra.Command {
	var tag uint64

	cmd := &cobra.Command{
		Use:   "write [blob|-]",
		Short: "Append a record and print its index",
		Long:  "Append a record and print its index. With \"-\" the blob is read from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob := []byte(args[0])
			if args[0] == "-" {
				var err error
				if blob, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			}

			seq, err := g.open(cmd.Context(), g.resume)
			if err != nil {
				return err
			}
			defer seq.Close()

			idx, err := seq.Write(cmd.Context(), tag, blob)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), idx)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&tag, "tag", 0, "record tag")
	return cmd
}

func newReadCmd(g *globalFlags) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "read <index>",
		Short: "Print the record stored at index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad index %q: %w", args[0], err)
			}

			seq, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer seq.Close()

			rec, ok, err := seq.Read(cmd.Context(), index)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no record at index %d", index)
			}

			if raw {
				_, err = cmd.OutOrStdout().Write(rec.Blob)
				return err
			}
			printRecord(cmd.OutOrStdout(), index, rec)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "write only the blob bytes")
	return cmd
}

func newReplayCmd(g *globalFlags) *cobra.Command {
	var from uint64

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Print records in index order until the first gap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			seq, err := g.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer seq.Close()

			out := cmd.OutOrStdout()
			return seq.Replay(cmd.Context(), from, func(index uint64, rec codec.Record) error {
				printRecord(out, index, rec)
				return nil
			})
		},
	}
	cmd.Flags().Uint64Var(&from, "from", 0, "first index")
	return cmd
}

func printRecord(w io.Writer, index uint64, rec codec.Record) {
	fmt.Fprintf(w, "%d\ttag=%d\t%q\n", index, rec.Tag, rec.Blob)
}
