// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Command universos is the kernel's command-line front end: it runs
// the evolution loop to completion or shutdown, and exposes the ISA
// assembler as a standalone tool, per spec §6.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is stamped at build time via -ldflags; it defaults to "dev"
// for local builds.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "universos",
	Short: "UniverOS — a thermodynamic kernel for register-machine workloads",
	Long: `UniverOS replaces traditional OS primitives with a simulated closed
thermodynamic system: workloads ("universes") are small register/stack
machines coordinated by a deterministic evolution loop that enforces
energy conservation and entropy monotonicity while routing messages
between workloads through typed interaction channels.`,
}

func main() {
	rootCmd.AddCommand(runCmd(), assembleCmd(), versionCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "universos: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}
