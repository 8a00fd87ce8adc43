package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"sixtyfive/emu/log"
)

type mode byte

const (
	runMode        mode = iota // Run a program image
	disasmMode                 // Disassemble a program image
	initConfigMode             // Write the default configuration file
	versionMode                // Show sixtyfive version
)

type (
	CLI struct {
		Run        Run        `cmd:"" help:"Run a program image in the emulator."`
		Disasm     Disasm     `cmd:"" help:"Disassemble a program image."`
		InitConfig InitConfig `cmd:"" name:"init-config" help:"Write the default configuration file."`
		Version    Version    `cmd:"" help:"Show sixtyfive version."`

		Log logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`

		mode mode
	}

	Run struct {
		ImagePath string `arg:"" optional:"" name:"/path/to/image" help:"${image_help}" type:"existingfile"`

		Config    string   `name:"config" help:"${config_help}" type:"existingfile"`
		Addr      hex16    `name:"addr" help:"Load address of a raw binary image." default:"0"`
		ROM       bool     `name:"rom" help:"Map the image read-only."`
		PC        *hex16   `name:"pc" help:"Start address, overrides the reset vector."`
		Decimal   bool     `name:"decimal" help:"Enable BCD arithmetic."`
		Strict    bool     `name:"strict" help:"Fail on unmapped accesses, ROM writes and invalid opcodes."`
		Console   bool     `name:"console" help:"Enable the memory-mapped console."`
		Cycles    uint64   `name:"cycles" help:"Stop after this many cycles (0 means no limit)."`
		Trace     *outfile `name:"trace" help:"Write CPU trace log." placeholder:"FILE|stdout|stderr"`
		Debugger  string   `name:"debugger" help:"${debugger_help}" placeholder:"HOST:PORT"`
		Break     bool     `name:"break" help:"Pause before the first instruction (requires --debugger)."`
		SaveState string   `name:"save-state" help:"Save machine state to file on exit." type:"path"`
		LoadState string   `name:"load-state" help:"Load machine state from file before running." type:"existingfile"`

		CPUProfile string `name:"cpuprofile" help:"${cpuprofile_help}" type:"path"`
		RPCPort    int    `name:"rpc-port" help:"Serve the remote controls on this localhost port."`
	}

	Disasm struct {
		ImagePath string `arg:"" name:"/path/to/image" type:"existingfile"`

		Addr  hex16  `name:"addr" help:"Load address of a raw binary image." default:"0"`
		Start *hex16 `name:"start" help:"First disassembled address (default: reset vector)."`
		Count int    `name:"count" help:"Number of instructions." default:"32"`
	}

	InitConfig struct {
		Out   string `name:"out" help:"Output file (default: config.toml in the user config directory)." type:"path"`
		Force bool   `name:"force" help:"Overwrite an existing file."`
	}

	Version struct{}
)

var vars = kong.Vars{
	"image_help":      "Program image, raw binary or iNES.",
	"config_help":     "Configuration file (default: config.toml in the user config directory).",
	"debugger_help":   "Serve the debugger websocket on this address.",
	"cpuprofile_help": "Write CPU profile to file.",
	"log_help":        "Enable logging for specified modules.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("sixtyfive"),
		kong.Description("Cycle-count accurate 6502 emulator."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	switch {
	case strings.HasPrefix(ctx.Command(), "disasm"):
		cfg.mode = disasmMode
	case ctx.Command() == "init-config":
		cfg.mode = initConfigMode
	case ctx.Command() == "version":
		cfg.mode = versionMode
	default:
		cfg.mode = runMode
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	if strings.HasPrefix(ctx.Command(), "run") {
		loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
		var strs []string
		for _, m := range log.ModuleNames() {
			strs = append(strs, "    - "+m)
		}

		fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	}

	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	nolog := false
	allLogs := false

	tok := ctx.Scan.Pop()
	for _, v := range strings.Split(tok.Value.(string), ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			lm |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if lm != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		lm = logModMask(log.ModuleMaskAll)
	}

	log.EnableDebugModules(log.ModuleMask(lm))
	return nil
}

// hex16 is a 16-bit address, written in hexadecimal with an optional $ or 0x
// prefix.
type hex16 uint16

// Decode implements kong.MapperValue interface.
func (h *hex16) Decode(ctx *kong.DecodeContext) error {
	var s string
	if err := ctx.Scan.PopValueInto("address", &s); err != nil {
		return err
	}
	v, err := parseHex16(s)
	if err != nil {
		return err
	}
	*h = hex16(v)
	return nil
}

func parseHex16(s string) (uint16, error) {
	str := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "$"), "0x")
	v, err := strconv.ParseUint(str, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return uint16(v), nil
}

func (h *hex16) ptr() *uint16 {
	if h == nil {
		return nil
	}
	v := uint16(*h)
	return &v
}

type outfile struct {
	w     io.Writer
	name  string
	close func() error
}

// Decode decodes FILE|stdout|stderr into an io.WriteCloser
// that writes to that file.
//
// Implements kong.MapperValue interface.
func (f *outfile) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	f.name = tok.Value.(string)
	f.close = func() error { return nil }

	switch f.name {
	case "stdout":
		f.w = os.Stdout
	case "stderr":
		f.w = os.Stderr
	default:
		fd, err := os.Create(f.name)
		if err != nil {
			return err
		}
		f.w = fd
		f.close = fd.Close
	}
	return nil
}

func (f *outfile) String() string              { return f.name }
func (f *outfile) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *outfile) Close() error                { return f.close() }

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
