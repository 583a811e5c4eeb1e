// Command dolpatch injects a precompiled payload into a GameCube disc
// image's embedded DOL executable, rewriting the entry point so the
// payload runs before the game's own startup code.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ApfelTeeSaft/dolhook-go/patch"
)

const usage = `usage: dolpatch [options] <image.iso>

Options:
  --out PATH      write the patched image to PATH (default: overwrite the
                   input in place, after creating a <input>.bak backup)
  --id CODE       override the disc's game code before patching
  --log N         verbosity: 0 errors, 1 info, 2 debug (default 0)
  --dry-run       run through payload preparation without writing anything
  --print-dol     print the embedded DOL's section table
  --help          print this message and exit
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("dolpatch", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }

	out := fs.String("out", "", "output path")
	id := fs.String("id", "", "override game id")
	logLevel := fs.Int("log", patch.LevelError, "verbosity (0=error, 1=info, 2=debug)")
	dryRun := fs.Bool("dry-run", false, "stop before writing the patched image")
	printDOL := fs.Bool("print-dol", false, "print the embedded DOL's section table")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}

	opts := &patch.Options{
		InputPath:  fs.Arg(0),
		OutputPath: *out,
		GameID:     *id,
		Logger:     patch.NewLogger(os.Stdout, *logLevel),
		DryRun:     *dryRun,
		PrintDOL:   *printDOL,
	}

	if err := patch.Run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "dolpatch: %v\n", err)
		return 1
	}
	return 0
}
