// Copyright (C) 2025-2026, UniverOS Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ethcocoder/universos/asm"
	"github.com/ethcocoder/universos/config"
	"github.com/ethcocoder/universos/driver"
	"github.com/ethcocoder/universos/kernel"
	"github.com/ethcocoder/universos/logging"
)

// runOpts collects the cobra-ified form of §6's
// `program [listen_port] [remote_port] [mode]` positional contract.
type runOpts struct {
	listen     int
	remote     int
	remoteHost string
	mode       string
	program    string
	energy     float64
	ticks      uint64
	archive    bool
	compress   bool
}

func runCmd() *cobra.Command {
	var o runOpts
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the evolution loop",
		Long: `Run starts the kernel's evolution loop. With --listen set, the
wormhole network driver accepts inbound peer connections; with
--remote set, it additionally dials out to a peer. --mode chaos
registers the sabotage driver (§6's chaos-injection mode).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKernel(cmd, o)
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&o.listen, "listen", 0, "listen port for the wormhole network driver (0 disables)")
	flags.IntVar(&o.remote, "remote", 0, "remote peer port to dial (0 disables)")
	flags.StringVar(&o.remoteHost, "remote-host", "127.0.0.1", "remote peer host")
	flags.StringVar(&o.mode, "mode", "standard", `run mode: "standard" or "chaos"`)
	flags.StringVar(&o.program, "program", "", "assembled bytecode file (or .asm source) to load into the first universe")
	flags.Float64Var(&o.energy, "energy", 1000, "initial free-energy pool")
	flags.Uint64Var(&o.ticks, "ticks", 0, "ticks to run before stopping (0 = run until a shutdown pulse or signal)")
	flags.BoolVar(&o.archive, "archive", true, "register the archive driver")
	flags.BoolVar(&o.compress, "compress", false, "zstd-compress archive records")
	return cmd
}

func runKernel(cmd *cobra.Command, o runOpts) error {
	log := logging.New("universos", "")
	cfg := config.Default()
	if o.mode == "chaos" {
		cfg = config.Chaos()
	}
	cfg.InitialEnergy = o.energy

	reg := prometheus.NewRegistry()
	k := kernel.New(cfg, cfg.InitialEnergy, log, reg)

	uid, err := k.SpawnUniverse(100)
	if err != nil {
		return fmt.Errorf("spawn initial universe: %w", err)
	}
	if o.program != "" {
		bytecode, err := loadProgram(o.program)
		if err != nil {
			return err
		}
		if err := k.LoadProgram(uid, bytecode); err != nil {
			return fmt.Errorf("load program: %w", err)
		}
	}

	if o.archive {
		ar, err := driver.NewArchive(o.compress)
		if err != nil {
			return fmt.Errorf("init archive driver: %w", err)
		}
		k.RegisterDriver(ar)
	}

	var net *driver.Network
	if o.listen != 0 {
		net = driver.NewNetwork()
		if err := net.Listen(fmt.Sprintf(":%d", o.listen)); err != nil {
			return fmt.Errorf("listen on :%d: %w", o.listen, err)
		}
		defer net.Close()
		k.RegisterDriver(net)
	}
	if o.remote != 0 {
		if net == nil {
			net = driver.NewNetwork()
			k.RegisterDriver(net)
		}
		addr := fmt.Sprintf("ws://%s:%d/wormhole", o.remoteHost, o.remote)
		if err := net.Connect(uid, addr); err != nil {
			log.Warn("could not connect to remote peer", "addr", addr, "err", err)
		}
	}
	if o.mode == "chaos" {
		k.RegisterDriver(driver.NewChaos(0.8, 1))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	maxTicks := o.ticks
	if maxTicks == 0 {
		maxTicks = ^uint64(0)
	}
	var i uint64
	for ; i < maxTicks; i++ {
		select {
		case <-ctx.Done():
			goto done
		default:
		}
		if err := k.Tick(); err != nil {
			return fmt.Errorf("tick %d: %w", i, err)
		}
		if k.Shutdown() {
			i++
			break
		}
	}
done:
	fmt.Fprintf(cmd.OutOrStdout(), "ran %d ticks: free=%.4f entropy=%.4f universes=%d\n",
		i, k.FreeEnergy(), k.GlobalEntropy(), k.UniverseCount())
	return nil
}

func loadProgram(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program %s: %w", path, err)
	}
	if len(path) > 4 && path[len(path)-4:] == ".asm" {
		return asm.Assemble(string(raw))
	}
	return raw, nil
}
