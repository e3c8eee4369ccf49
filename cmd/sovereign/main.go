// Command sovereign is the decision counsel engine's CLI: it dispatches
// to ingest, counsel, and outcome subcommands, following the
// os.Args[1]-plus-flag.NewFlagSet dispatch style of the teacher's
// cmd/helixagent/main.go, generalized from one flat flag set into
// per-subcommand flag sets since this binary has more than one entry
// point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Mirrors the teacher's own godotenv.Load call in cmd/helixagent/main.go:
	// a missing .env file is not an error, only a real read failure is.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage())
		return 2
	}

	switch args[0] {
	case "counsel":
		return runCounsel(args[1:])
	case "outcome":
		return runOutcome(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "-h", "--help", "help":
		fmt.Println(usage())
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", args[0], usage())
		return 2
	}
}

func usage() string {
	return `sovereign — decision counsel engine

Usage:
  sovereign counsel <quick|normal|war> --domain D [flags]
  sovereign outcome <event_id> --mode {quick|normal|war}
  sovereign ingest --book-id ID --domain D --text-file PATH [flags]

Run "sovereign <command> -h" for command-specific flags.`
}
