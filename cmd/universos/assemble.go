// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ethcocoder/universos/asm"
)

func assembleCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "assemble <file.asm>",
		Short: "Assemble Universal ISA text into bytecode",
		Long: `Assemble runs the two-pass assembler over a line-oriented text program
and writes the resulting flat bytecode, per §6's "programs must be
loadable from text" requirement.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			bytecode, err := asm.Assemble(string(src))
			if err != nil {
				return fmt.Errorf("assemble %s: %w", args[0], err)
			}
			if out == "" {
				_, err := cmd.OutOrStdout().Write(bytecode)
				return err
			}
			if err := os.WriteFile(out, bytecode, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(bytecode), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (defaults to stdout)")
	return cmd
}
