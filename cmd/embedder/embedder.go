package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/maja42/peres"
	"github.com/maja42/peres/embedding"
	"github.com/maja42/peres/internal/cli"
)

type CommandLine struct {
	Target   string
	Source   string
	TypeLib  string
	Payload  string
	Type     string
	Name     string
	Lang     string
	TempDir  string
	Unsigned bool
	Verbose  bool
}

// Identifier builds the resource identifier selected on the command line.
func (cmd CommandLine) Identifier() peres.Identifier {
	typ, err := cli.ParseType(cmd.Type)
	cli.CheckExit(err, cli.ExitUsage, "Invalid -type")
	name, err := cli.ParseUint16(cmd.Name)
	cli.CheckExit(err, cli.ExitUsage, "Invalid -name")
	lang, err := cli.ParseUint16(cmd.Lang)
	cli.CheckExit(err, cli.ExitUsage, "Invalid -lang")

	id := peres.Identifier{Type: typ, Name: name, Language: lang}
	cli.CheckExit(id.Validate(), cli.ExitUsage, "Invalid resource")
	return id
}

func main() {
	var cmd CommandLine
	flag.StringVar(&cmd.Target, "target", "", "PE image (.dll, .exe, .ocx) that receives the resource")
	flag.StringVar(&cmd.Source, "source", "", "PE image to start from (defaults to -target)")
	flag.StringVar(&cmd.TypeLib, "typelib", "", "Type library to embed as typelib/1/0")
	flag.StringVar(&cmd.Payload, "payload", "", "Arbitrary file to embed as -type/-name/-lang")
	flag.StringVar(&cmd.Type, "type", "typelib", "Resource type: symbolic name or number")
	flag.StringVar(&cmd.Name, "name", "1", "Resource name (ordinal)")
	flag.StringVar(&cmd.Lang, "lang", "0", "Resource language id (0 = neutral)")
	flag.StringVar(&cmd.TempDir, "tmp", "", "Directory for the staging copy (defaults to the target directory)")
	flag.BoolVar(&cmd.Unsigned, "strip-signature", false, "Remove an authenticode signature instead of refusing signed images")
	flag.BoolVar(&cmd.Verbose, "v", false, "Verbose output")
	flag.Parse()

	logger := cli.NewLogger("embedder", os.Stderr, cmd.Verbose)
	defer cli.HandleExit(logger)

	if cmd.Target == "" || (cmd.TypeLib == "") == (cmd.Payload == "") {
		flag.Usage()
		cli.Exitf(cli.ExitUsage, "Either -typelib or -payload is required, together with -target")
	}

	opts := &embedding.Options{
		Logger:  logger,
		TempDir: cmd.TempDir,
	}
	if cmd.Unsigned {
		opts.Authenticode = embedding.RemoveSignature
	}

	var err error
	if cmd.TypeLib != "" {
		err = embedding.EmbedTypeLib(cmd.Target, cmd.Source, cmd.TypeLib, opts)
	} else {
		err = embedding.EmbedFile(cmd.Target, cmd.Source, cmd.Payload, cmd.Identifier(), opts)
	}
	cli.CheckExit(err, cli.ExitFailure, "Failed to embed into %q", cmd.Target)

	fmt.Fprintf(os.Stderr, "Finished\n")
}
