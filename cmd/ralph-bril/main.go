package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/raymyers/ralph-bril/internal/config"
	"github.com/raymyers/ralph-bril/internal/logging"
	"github.com/raymyers/ralph-bril/pkg/bril"
	"github.com/raymyers/ralph-bril/pkg/cfg"
	"github.com/raymyers/ralph-bril/pkg/cfggen"
)

var version = "0.1.0"

// Debug flags for dumping intermediate representations
var (
	dBril    bool
	dCfg     bool
	dDot     bool
	dMsgpack bool
)

// Other options; most are also reachable through the config file
var (
	configPath  string
	printConfig bool
	funcNames   []string
	dotCompact  bool
)

// resetFlags restores every flag variable to its zero value
func resetFlags() {
	dBril, dCfg, dDot, dMsgpack = false, false, false, false
	configPath = ""
	printConfig = false
	funcNames = nil
	dotCompact = false
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// Normalize single-dash dump flags to double-dash for pflag compatibility
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

// debugFlagNames lists the dump flags that also accept single-dash style
var debugFlagNames = []string{"dbril", "dcfg", "ddot", "dmsgpack"}

// normalizeFlags converts single-dash flags like -dcfg to --dcfg
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ralph-bril [file.json]",
		Short: "ralph-bril builds control flow graphs from Bril programs",
		Long: `ralph-bril reads a Bril program in its JSON form and builds one
control flow graph per function: basic blocks joined by jump, conditional
and return edges, with every return routed to a single exit block.
Use "-" to read the program from standard input.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				fmt.Fprintf(errOut, "ralph-bril: %v\n", err)
				return err
			}
			r := newReporter(errOut, conf.Output.Color)

			if printConfig {
				return conf.Write(out)
			}
			if len(args) == 0 {
				return cmd.Help()
			}

			logger, err := logging.New(conf.Log, errOut)
			if err != nil {
				r.errorf("%v", err)
				return err
			}
			defer logger.Sync() //nolint:errcheck

			d := &driver{
				filename: args[0],
				conf:     conf,
				out:      out,
				r:        r,
			}

			prog, err := d.load(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if dBril {
				if err := d.dump(".bril", func(w io.Writer) error {
					bril.NewPrinter(w).PrintProgram(prog)
					return nil
				}); err != nil {
					return err
				}
			}

			graphs, buildErr := cfggen.TranslateProgram(cmd.Context(), prog, cfggen.Options{
				Jobs:    conf.Build.Jobs,
				Timeout: conf.Build.Timeout,
				Funcs:   funcNames,
				Logger:  logger,
			})
			for _, e := range multierr.Errors(buildErr) {
				r.errorf("%v", e)
			}
			if buildErr != nil && len(graphs) == 0 {
				return buildErr
			}

			if err := d.emit(graphs); err != nil {
				return err
			}
			return buildErr
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	// Add debug flags
	rootCmd.Flags().BoolVarP(&dBril, "dbril", "", false, "Dump the input program as Bril text")
	rootCmd.Flags().BoolVarP(&dCfg, "dcfg", "", false, "Dump control flow graphs")
	rootCmd.Flags().BoolVarP(&dDot, "ddot", "", false, "Dump control flow graphs in Graphviz format")
	rootCmd.Flags().BoolVarP(&dMsgpack, "dmsgpack", "", false, "Write control flow graphs in binary form")

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default: ralph-bril.yaml in the working directory)")
	rootCmd.Flags().BoolVar(&printConfig, "print-config", false, "Print the effective configuration and exit")
	rootCmd.Flags().StringArrayVarP(&funcNames, "func", "f", nil, "Only process the named function (repeatable)")
	rootCmd.Flags().BoolVar(&dotCompact, "dot-compact", false, "Omit instructions from Graphviz output")

	// Flags mirrored by config keys; defaults come from the config layer
	rootCmd.Flags().IntP("jobs", "j", config.DefaultJobs, "Functions to translate concurrently (0 = one per CPU)")
	rootCmd.Flags().Duration("timeout", 0, "Give up after this long (0 = no limit)")
	rootCmd.Flags().StringP("output-dir", "o", "", "Directory for dump files (default: next to the input)")
	rootCmd.Flags().String("color", config.DefaultColor, "Colorize diagnostics: auto, always or never")
	rootCmd.Flags().String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn or error")
	rootCmd.Flags().String("log-format", config.DefaultLogFormat, "Log format: console or json")

	return rootCmd
}

// reporter prints ralph-bril diagnostics
type reporter struct {
	w     io.Writer
	label *color.Color
}

func newReporter(w io.Writer, mode string) *reporter {
	label := color.New(color.FgRed, color.Bold)
	switch mode {
	case "always":
		label.EnableColor()
	case "never":
		label.DisableColor()
	}
	return &reporter{w: w, label: label}
}

func (r *reporter) errorf(format string, args ...any) {
	fmt.Fprintf(r.w, "ralph-bril: %s %s\n", r.label.Sprint("error:"), fmt.Sprintf(format, args...))
}

// driver carries one run over one input file
type driver struct {
	filename string
	conf     *config.Config
	out      io.Writer
	r        *reporter
}

func (d *driver) fromStdin() bool { return d.filename == "-" }

// load reads and decodes the input program
func (d *driver) load(stdin io.Reader) (*bril.Program, error) {
	var (
		data []byte
		err  error
	)
	if d.fromStdin() {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(d.filename)
	}
	if err != nil {
		d.r.errorf("error reading %s: %v", d.filename, err)
		return nil, err
	}

	prog, err := bril.Parse(data)
	if err != nil {
		d.r.errorf("%s: %v", d.filename, err)
		return nil, err
	}
	return prog, nil
}

// emit writes the requested dumps, or a one-line summary per graph when none was requested
func (d *driver) emit(graphs []*cfg.Cfg) error {
	if !dCfg && !dDot && !dMsgpack {
		if !dBril {
			printSummary(d.out, graphs)
		}
		return nil
	}

	if dCfg {
		if err := d.dump(".cfg", func(w io.Writer) error {
			cfg.NewPrinter(w).PrintAll(graphs)
			return nil
		}); err != nil {
			return err
		}
	}

	if dDot {
		opts := cfg.DefaultDotOptions()
		opts.ShowInstrs = !dotCompact
		if err := d.dump(".dot", func(w io.Writer) error {
			return cfg.WriteDot(w, graphs, opts)
		}); err != nil {
			return err
		}
	}

	if dMsgpack {
		if err := d.writeBinary(".cfg.msgpack", graphs); err != nil {
			return err
		}
	}
	return nil
}

// dump renders text once, writes it to the dump file and echoes it to stdout
func (d *driver) dump(ext string, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		d.r.errorf("%v", err)
		return err
	}

	if !d.fromStdin() {
		outputFilename := d.outputFilename(ext)
		if err := os.WriteFile(outputFilename, buf.Bytes(), 0o644); err != nil {
			d.r.errorf("error creating %s: %v", outputFilename, err)
			return err
		}
	}

	// Also print to stdout for convenience
	if d.conf.Output.Stdout || d.fromStdin() {
		_, err := d.out.Write(buf.Bytes())
		return err
	}
	return nil
}

// writeBinary writes the msgpack encoding; it goes to stdout only for stdin input
func (d *driver) writeBinary(ext string, graphs []*cfg.Cfg) error {
	if d.fromStdin() {
		return cfg.Encode(d.out, graphs)
	}

	outputFilename := d.outputFilename(ext)
	outFile, err := os.Create(outputFilename)
	if err != nil {
		d.r.errorf("error creating %s: %v", outputFilename, err)
		return err
	}
	defer outFile.Close()

	if err := cfg.Encode(outFile, graphs); err != nil {
		d.r.errorf("error writing %s: %v", outputFilename, err)
		return err
	}
	return nil
}

// outputFilename returns the dump file name: input.json -> input.cfg
func (d *driver) outputFilename(ext string) string {
	base := strings.TrimSuffix(d.filename, ".json")
	if d.conf.Output.Dir != "" {
		return filepath.Join(d.conf.Output.Dir, filepath.Base(base)+ext)
	}
	return base + ext
}

// printSummary prints "@main: 4 blocks (3 reachable), 5 edges" per graph
func printSummary(w io.Writer, graphs []*cfg.Cfg) {
	for _, g := range graphs {
		reachable := 0
		for _, ok := range g.Reachable() {
			if ok {
				reachable++
			}
		}
		fmt.Fprintf(w, "@%s: %d blocks (%d reachable), %d edges\n",
			g.Name(), g.NumBlocks(), reachable, g.NumEdges())
	}
}
