package main

import (
	"flag"
	"os"

	"github.com/maja42/peres"
	"github.com/maja42/peres/internal/cli"
)

type CommandLine struct {
	Image    string
	Type     string
	Name     string
	Fallback string
	Out      string
	Resolve  bool
	Verbose  bool
}

// Locate reads the requested resource, or the manifest if -resolve is set.
func (cmd CommandLine) Locate(opts *peres.ReadOptions) []byte {
	if cmd.Resolve {
		data, src, err := peres.ResolveManifest(cmd.Image, opts)
		cli.CheckExit(err, cli.ExitFailure, "Failed to read %q", cmd.Image)
		if src == peres.NoManifest {
			cli.Exitf(cli.ExitNotFound, "No manifest for %q", cmd.Image)
		}
		opts.Logger.Info("manifest located", "source", src)
		return data
	}

	typ, err := cli.ParseType(cmd.Type)
	cli.CheckExit(err, cli.ExitUsage, "Invalid -type")
	primary, err := cli.ParseUint16(cmd.Name)
	cli.CheckExit(err, cli.ExitUsage, "Invalid -name")
	fallback := cli.DefaultFallback(typ, primary)
	if cmd.Fallback != "" {
		fallback, err = cli.ParseUint16(cmd.Fallback)
		cli.CheckExit(err, cli.ExitUsage, "Invalid -fallback")
	}

	data, found, err := peres.ReadResource(cmd.Image, typ, primary, fallback, opts)
	cli.CheckExit(err, cli.ExitFailure, "Failed to read %q", cmd.Image)
	if !found {
		cli.Exitf(cli.ExitNotFound, "Resource %s/%d not found in %q", typ, primary, cmd.Image)
	}
	return data
}

func main() {
	var cmd CommandLine
	flag.StringVar(&cmd.Image, "image", "", "PE image to read")
	flag.StringVar(&cmd.Type, "type", "manifest", "Resource type: symbolic name or number")
	flag.StringVar(&cmd.Name, "name", "1", "Resource name (ordinal)")
	flag.StringVar(&cmd.Fallback, "fallback", "", "Resource name probed if -name is absent (defaults to 2 for manifests)")
	flag.StringVar(&cmd.Out, "out", "", "Output file (defaults to stdout)")
	flag.BoolVar(&cmd.Resolve, "resolve", false, "Prefer a side-by-side <image>.manifest over the embedded manifest")
	flag.BoolVar(&cmd.Verbose, "v", false, "Verbose output")
	flag.Parse()

	logger := cli.NewLogger("extractor", os.Stderr, cmd.Verbose)
	defer cli.HandleExit(logger)

	if cmd.Image == "" {
		flag.Usage()
		cli.Exitf(cli.ExitUsage, "-image is required")
	}

	data := cmd.Locate(&peres.ReadOptions{Logger: logger})

	if cmd.Out == "" {
		_, err := os.Stdout.Write(data)
		cli.CheckExit(err, cli.ExitFailure, "Failed to write output")
		return
	}
	err := os.WriteFile(cmd.Out, data, 0o644)
	cli.CheckExit(err, cli.ExitFailure, "Failed to write output file %q", cmd.Out)
	logger.Info("resource written", "path", cmd.Out, "size", len(data))
}
