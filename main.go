package main

import (
	"fmt"
	"os"
	"runtime/debug"
)

func main() {
	cfg := parseArgs(os.Args[1:])

	switch cfg.mode {
	case runMode:
		os.Exit(runMain(cfg.Run))
	case disasmMode:
		disasmMain(cfg.Disasm)
	case initConfigMode:
		initConfigMain(cfg.InitConfig)
	case versionMode:
		printVersion()
	}
}

func printVersion() {
	version := "(devel)"
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		version = bi.Main.Version
	}
	fmt.Println("sixtyfive", version)
}
