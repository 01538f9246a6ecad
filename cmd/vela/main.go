// Command vela loads a module and its transitive dependencies, reporting
// parse and type problems.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/velaris-lang/vela/internal/config"
	"github.com/velaris-lang/vela/internal/loader"
	"github.com/velaris-lang/vela/internal/stdlib"
)

// Version, Commit, and BuildTime are set via -ldflags at release build
// time; for local builds they default to "dev", "none" and "unknown".
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "print version and exit")
		uniqueness  = flag.Bool("uniqueness", false, "enable the uniqueness-tracking builtin set")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("vela %s (%s, built %s)\n", Version, Commit, BuildTime)
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: vela <file.vl>")
		os.Exit(2)
	}
	filename := args[0]

	root, _ := config.FindProjectRoot(".")
	if root == "" {
		root = "."
	}
	cfg, err := config.Load(root)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: reading vela.yaml: %s\n", err)
		os.Exit(1)
	}

	mode := stdlib.Standard
	if *uniqueness || cfg.Uniqueness {
		mode = stdlib.Uniqueness
	}

	result, problem := loader.Load(cfg.ResolveStdlibPath(root), root, filename, mode)
	if problem != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %s\n", problem.Error())
		os.Exit(1)
	}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	for _, r := range result.CanProblems {
		fmt.Fprintf(os.Stderr, "%s %s: %s\n", yellow("warning"), r.Code, r.Message)
	}
	for _, r := range result.TypeProblems {
		fmt.Fprintf(os.Stderr, "%s %s: %s\n", yellow("warning"), r.Code, r.Message)
	}

	fmt.Printf("%s loaded %d module(s)\n", green("ok"), result.Interns.Modules.Len())
}
