// Command breakoutctl is an operator CLI for the engine: today it carries
// a single validate-config subcommand that resolves every instrument's
// effective parameters offline, without starting the engine.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"breakoutengine/internal/apperrors"
	"breakoutengine/internal/planconfig"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "validate-config":
		runValidateConfig(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "breakoutctl: unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: breakoutctl <subcommand> [flags]")
	fmt.Fprintln(os.Stderr, "subcommands:")
	fmt.Fprintln(os.Stderr, "  validate-config -file <path>   resolve and validate a layered parameter config")
}

// layeredConfigFile is the on-disk shape validate-config reads: one global
// layer plus a named override layer per instrument.
type layeredConfigFile struct {
	Global      *planconfig.ParamLayer            `json:"global"`
	Instruments map[string]*planconfig.ParamLayer `json:"instruments"`
}

func runValidateConfig(args []string) {
	fs := flag.NewFlagSet("validate-config", flag.ExitOnError)
	path := fs.String("file", "", "path to a JSON layered config file")
	fs.Parse(args)

	if *path == "" {
		fmt.Fprintln(os.Stderr, "validate-config: -file is required")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "validate-config: read %s: %v\n", *path, err)
		os.Exit(1)
	}

	var cfg layeredConfigFile
	if err := json.Unmarshal(raw, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "validate-config: parse %s: %v\n", *path, err)
		os.Exit(1)
	}

	fmt.Printf("validating %s (%d instrument override(s))\n", *path, len(cfg.Instruments))

	if _, err := planconfig.Merge(cfg.Global, nil, nil); err != nil {
		reportMergeError("<global>", err)
		os.Exit(1)
	}
	fmt.Println("  global: ok")

	allValid := true
	for instrumentID, override := range cfg.Instruments {
		if _, err := planconfig.Merge(cfg.Global, override, nil); err != nil {
			reportMergeError(instrumentID, err)
			allValid = false
			continue
		}
		fmt.Printf("  %s: ok\n", instrumentID)
	}

	if !allValid {
		fmt.Println("validation failed")
		os.Exit(1)
	}
	fmt.Println("all configuration validated")
}

func reportMergeError(scope string, err error) {
	if cerr, ok := err.(*apperrors.ConfigValidationError); ok {
		fmt.Printf("  %s: FAILED field=%q message=%s\n", scope, cerr.Field, cerr.Message)
		return
	}
	fmt.Printf("  %s: FAILED %v\n", scope, err)
}
