package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"

	"sixtyfive/emu"
	"sixtyfive/emu/debugger"
	"sixtyfive/emu/log"
	"sixtyfive/emu/rpc"
	"sixtyfive/ines"
)

// runMain runs the emulator with the configuration file and the command line
// flags, and returns the process exit code.
func runMain(args Run) int {
	var cfg emu.Config
	if args.Config != "" {
		var err error
		cfg, err = emu.LoadConfig(args.Config)
		checkf(err, "failed to load configuration")
	} else {
		cfg = emu.LoadConfigOrDefault()
	}

	if args.ImagePath != "" {
		checkf(addImage(&cfg, args.ImagePath, uint16(args.Addr), args.ROM), "invalid image")
	}
	if len(cfg.Images) == 0 && args.LoadState == "" {
		fatalf("nothing to run, provide an image or a configuration with images")
	}
	if pc := args.PC.ptr(); pc != nil {
		cfg.CPU.PC = pc
	}
	if args.Decimal {
		cfg.CPU.Decimal = true
	}
	if args.Strict {
		cfg.Memory.Strict = true
		cfg.CPU.DecodeFallback = false
	}
	if args.Console {
		cfg.Console.Enabled = true
	}
	if args.Cycles != 0 {
		cfg.Run.Cycles = args.Cycles
	}

	var traceout io.WriteCloser
	if args.Trace != nil {
		traceout = args.Trace
		defer traceout.Close()
	}
	cfg.TraceOut = traceout

	m, err := emu.Launch(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start emulator: %v\n", err)
		return 1
	}
	log.AddContext(m.CPU)
	defer log.RemoveContext(m.CPU)

	if args.LoadState != "" {
		buf, err := os.ReadFile(args.LoadState)
		if err == nil {
			err = m.LoadSnapshot(buf)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load state: %v\n", err)
			return 1
		}
	}
	if args.SaveState != "" {
		m.SetStatePath(args.SaveState)
	}
	if m.Console != nil {
		go feedConsole(m.Console, os.Stdin)
	}

	if args.Debugger != "" {
		dbg := debugger.New(m.CPU, m.Mem)
		if args.Break {
			dbg.Pause()
		}
		server, err := dbg.ListenAndServe(args.Debugger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start debugger server: %v\n", err)
			return 1
		}
		defer server.Close()
	}

	if args.RPCPort != 0 {
		server, err := rpc.NewServer(args.RPCPort, m)
		if err != nil {
			fmt.Fprintf(os.Stderr, "RPC error: %v\n", err)
			return 1
		}
		defer server.Close()
	}

	if args.CPUProfile != "" {
		f, err := os.Create(args.CPUProfile)
		checkf(err, "failed to create cpu profile file")
		checkf(pprof.StartCPUProfile(f), "failed to start cpu profile")
		defer func() {
			pprof.StopCPUProfile()
			f.Close()
			fmt.Println("CPU profile written to", args.CPUProfile)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reason, err := m.Run(ctx, cfg.Run.Cycles)
	fmt.Fprintf(os.Stderr, "stopped (%s) at $%04X after %d cycles\n", reason, m.CPU.PC, m.Clock.Cycles())
	if err != nil {
		fmt.Fprintf(os.Stderr, "emulation error: %v\n", err)
		return 1
	}
	return 0
}

// addImage adds the image at path to cfg. An iNES image takes the upper half
// of the address space, RAM is limited to the lower half.
func addImage(cfg *emu.Config, path string, addr uint16, rom bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	hdr := make([]byte, len(ines.Magic))
	if _, err := io.ReadFull(f, hdr); err == nil && ines.IsINES(hdr) {
		cfg.Memory.RAMSize = min(cfg.Memory.RAMSize, ines.ProgramAddr)
		cfg.Images = append(cfg.Images, emu.Image{Path: path, Format: "ines"})
		return nil
	}

	cfg.Images = append(cfg.Images, emu.Image{Path: path, Addr: addr, ROM: rom, Format: "bin"})
	return nil
}

func feedConsole(con *emu.Console, r io.Reader) {
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		con.Feed(buf[:n])
		if err != nil {
			return
		}
	}
}

// disasmMain prints the disassembly of an image.
func disasmMain(args Disasm) {
	cfg := emu.DefaultConfig()
	checkf(addImage(&cfg, args.ImagePath, uint16(args.Addr), false), "invalid image")

	m, err := emu.Launch(cfg, io.Discard)
	checkf(err, "failed to load image")

	pc := m.CPU.PC
	if start := args.Start.ptr(); start != nil {
		pc = *start
	}
	for range args.Count {
		op := m.CPU.Disasm(pc)
		fmt.Println(strings.TrimRight(op.String(), " "))
		pc += uint16(len(op.Buf))
	}
}

// initConfigMain writes the default configuration, so that it can be edited.
func initConfigMain(args InitConfig) {
	path := args.Out
	if path == "" {
		path = emu.ConfigPath()
	}
	if _, err := os.Stat(path); err == nil && !args.Force {
		fatalf("%s already exists, use --force to overwrite it", path)
	}
	checkf(emu.SaveConfig(path, emu.DefaultConfig()), "failed to write configuration")
	fmt.Println("configuration written to", path)
}
