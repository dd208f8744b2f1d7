package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mvrmn/fae/internal/dispatch"
	"github.com/mvrmn/fae/internal/errs"
	"github.com/mvrmn/fae/internal/obslog"
	"github.com/mvrmn/fae/internal/output"
	"github.com/mvrmn/fae/internal/parser"
)

var (
	version = "dev"
	commit  = "unknown"
)

// cliConfig mirrors the command-line surface of spec.md §6. Field names
// follow the teacher's cmd/codegrep/root.go Config convention of one
// struct bound to cobra flags via viper.BindPFlags.
type cliConfig struct {
	Dir            string
	Kinds          []string
	Limit          int
	Threshold      float64
	NoFiles        bool
	NoDirs         bool
	IncludeIgnored bool
	Heading        bool
	Index          bool
	Verbose        bool
}

var config cliConfig

var rootCmd = &cobra.Command{
	Use:     "fae [options] [query]",
	Short:   "Interactive code-search engine",
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	RunE:    runRoot,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.Flags()
	flags.StringVarP(&config.Dir, "dir", "d", ".", "Root directory to search")
	flags.StringSliceVarP(&config.Kinds, "type", "t", nil, "Filter kinds in non-TUI mode (comma separated)")
	flags.IntVarP(&config.Limit, "limit", "l", 50, "Max results")
	flags.Float64Var(&config.Threshold, "threshold", 0.4, "Fuzzy cutoff in [0,1] (lower = stricter)")
	flags.BoolVar(&config.NoFiles, "no-files", false, "Exclude file-name results")
	flags.BoolVar(&config.NoDirs, "no-dirs", false, "Exclude directory-name results")
	flags.BoolVar(&config.IncludeIgnored, "include-ignored", false, "Ignore ignore-files")
	flags.BoolVar(&config.Heading, "heading", false, "Group results under a file heading")
	flags.BoolVar(&config.Index, "index", false, "Build and print index summary, then exit")
	flags.BoolVarP(&config.Verbose, "verbose", "v", false, "Verbose diagnostics")

	viper.BindPFlags(flags)

	// Flag-parse errors are the user's argument mistake: classify them as
	// config errors so Execute maps them to exit code 1.
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errs.Config(err)
	})
}

func initConfig() {
	viper.SetEnvPrefix("FAE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// Execute runs the root command and returns the process exit code
// spec.md §6 defines: 0 success, 1 invalid arguments, 2 internal
// failure. The mapping from error to exit code is exactly errs.ClassOf:
// ClassConfig is the only class that exits 1, everything else (per-file,
// per-query, timeout, internal) exits 2, since none of those are the
// user's own argument mistake.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errs.ClassOf(err) == errs.ClassConfig {
			return 1
		}
		return 2
	}
	return 0
}

func runRoot(cmd *cobra.Command, args []string) error {
	// Resolve every option through viper so FAE_* environment variables
	// apply when the matching flag is not given on the command line.
	config.Dir = viper.GetString("dir")
	config.Kinds = viper.GetStringSlice("type")
	config.Limit = viper.GetInt("limit")
	config.Threshold = viper.GetFloat64("threshold")
	config.NoFiles = viper.GetBool("no-files")
	config.NoDirs = viper.GetBool("no-dirs")
	config.IncludeIgnored = viper.GetBool("include-ignored")
	config.Heading = viper.GetBool("heading")
	config.Index = viper.GetBool("index")
	config.Verbose = viper.GetBool("verbose")

	obslog.Configure(config.Verbose)

	kinds, err := parseKinds(config.Kinds)
	if err != nil {
		return err
	}

	engine, err := NewEngine(config.Dir, EngineOptions{IncludeIgnored: config.IncludeIgnored})
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := engine.BuildIndex(ctx); err != nil {
		return err
	}

	if config.Index {
		printIndexSummary(os.Stdout, engine)
		return nil
	}

	query := strings.Join(args, " ")
	if query == "" && isTerminal(os.Stdout) {
		// Interactive loop is out of scope for the core (spec.md §1);
		// the CLI surface here only serves one-shot and piped queries.
		fmt.Fprintln(os.Stderr, "fae: interactive mode is not built into this core; pass a query argument")
		return nil
	}

	d := engine.Dispatcher(config.Limit)
	d.SetThreshold(config.Threshold)
	out, outcome := d.Dispatch(ctx, query)

	heading := config.Heading || (!cmd.Flags().Changed("heading") && isTerminal(os.Stdout))
	printer := output.NewPrinter(os.Stdout, heading)

	for r := range out {
		if !passesFilters(r, kinds, config) {
			continue
		}
		if err := printer.Print(r); err != nil {
			return errs.Internal(err)
		}
	}

	o := <-outcome
	switch o.Kind {
	case dispatch.OutcomeFailed:
		_ = printer.Diagnostic(o.Err.Error())
	case dispatch.OutcomeTruncated:
		_ = printer.Diagnostic(fmt.Sprintf("truncated at %d results", config.Limit))
	}
	if err := printer.Flush(); err != nil {
		return errs.Internal(err)
	}
	return nil
}

func parseKinds(raw []string) (map[parser.SymbolKind]bool, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	valid := map[parser.SymbolKind]bool{
		parser.KindFunction: true, parser.KindMethod: true, parser.KindClass: true,
		parser.KindStruct: true, parser.KindInterface: true, parser.KindEnum: true,
		parser.KindVariable: true, parser.KindConstant: true, parser.KindTypeAlias: true,
		parser.KindField: true, parser.KindParameter: true,
	}
	out := make(map[parser.SymbolKind]bool, len(raw))
	for _, k := range raw {
		kind := parser.SymbolKind(strings.TrimSpace(k))
		if !valid[kind] {
			return nil, errs.Config(fmt.Errorf("unknown symbol kind %q", k))
		}
		out[kind] = true
	}
	return out, nil
}

func passesFilters(r dispatch.Result, kinds map[parser.SymbolKind]bool, cfg cliConfig) bool {
	if r.Display.Kind == dispatch.DisplaySymbol && len(kinds) > 0 && !kinds[r.Display.Symbol.Kind] {
		return false
	}
	if r.Display.Kind == dispatch.DisplayFile && cfg.NoFiles {
		return false
	}
	return true
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
