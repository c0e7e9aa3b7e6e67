package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hhkbp2/go-strftime"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hhkbp2/kvbench"
	"github.com/hhkbp2/kvbench/binding"
	"github.com/hhkbp2/kvbench/workload"
)

const (
	EngineBoth            = "both"
	DefaultOutput         = "results.json"
	DefaultReportFormat   = "markdown"
	ExitConfigError       = 2
	ExitBenchmarkError    = 1
	shellEngineDirPattern = "kvbench-shell-"
)

// BothEngines is what "--engine both" expands to.
var BothEngines = []string{"pebble", "bolt"}

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

type globalOptions struct {
	logLevel string
}

type runOptions struct {
	workload     string
	preset       string
	output       string
	engines      string
	properties   []string
	dataDir      string
	keepData     bool
	export       string
	histogramLog string
	duration     time.Duration
	operations   uint64
	progress     time.Duration
}

type analyzeOptions struct {
	format string
	expect []string
}

type shellOptions struct {
	engine     string
	properties []string
	dataDir    string
	keepData   bool
}

func NewRootCommand(s streams) *cobra.Command {
	global := &globalOptions{}
	root := &cobra.Command{
		Use:           "kvbench",
		Short:         "kvbench compares key-value storage engines under one workload",
		Long:          "A benchmark harness which drives storage engines through the same seeded workload and compares their throughput, latency percentiles and amplification",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(s.in)
	root.SetOut(s.out)
	root.SetErr(s.err)
	root.PersistentFlags().StringVar(&global.logLevel, "log-level", kvbench.LevelInfo,
		"log level: verbose, debug, info, warn, error or quiet")
	root.AddCommand(newRunCommand(global, s), newAnalyzeCommand(s), newShellCommand(global, s))
	return root
}

func newRunCommand(global *globalOptions, s streams) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workload against one or more engines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(global, o, s)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&o.workload, "workload", "w", "", "workload YAML file")
	flags.StringVar(&o.preset, "preset", "", "named workload: "+strings.Join(workload.PresetNames(), ", "))
	flags.StringVarP(&o.output, "output", "o", DefaultOutput, "results file, strftime directives are expanded")
	flags.StringVarP(&o.engines, "engine", "e", EngineBoth, "engine name, comma separated list or \"both\"")
	flags.StringArrayVarP(&o.properties, "property", "p", nil, "engine property name=value")
	flags.StringVar(&o.dataDir, "data-dir", "", "parent directory of the engine data directories")
	flags.BoolVar(&o.keepData, "keep-data", false, "keep the engine data directories")
	flags.StringVar(&o.export, "export", "", "print raw histogram measurements: text, json or jsonarray")
	flags.StringVar(&o.histogramLog, "histogram-log", "", "write the histogram snapshots to a file")
	flags.DurationVar(&o.duration, "duration", 0, "override the workload duration")
	flags.Uint64Var(&o.operations, "operations", 0, "override the workload operation count")
	flags.DurationVar(&o.progress, "progress", kvbench.DefaultProgressInterval, "progress report interval, negative disables")
	return cmd
}

func newAnalyzeCommand(s streams) *cobra.Command {
	o := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <results.json>",
		Short: "Compare the engines of a results file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return analyze(args[0], o, s)
		},
	}
	cmd.Flags().StringVarP(&o.format, "format", "f", DefaultReportFormat,
		"report format: "+strings.Join(kvbench.ReportFormatNames(), ", "))
	cmd.Flags().StringSliceVar(&o.expect, "expect", nil, "engines which must be present")
	return cmd
}

func newShellCommand(global *globalOptions, s streams) *cobra.Command {
	o := &shellOptions{}
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive mode against one engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(global, o, s)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&o.engine, "engine", "e", "basic", "engine name")
	flags.StringArrayVarP(&o.properties, "property", "p", nil, "engine property name=value")
	flags.StringVar(&o.dataDir, "data-dir", "", "parent directory of the engine data directory")
	flags.BoolVar(&o.keepData, "keep-data", false, "keep the engine data directory")
	return cmd
}

func newLogger(global *globalOptions) (*zap.Logger, error) {
	logger, err := kvbench.NewLogger(global.logLevel)
	if err != nil {
		return nil, err
	}
	binding.SetLogger(logger)
	return logger, nil
}

// ParseEngines splits a comma separated engine list. "both" expands to
// BothEngines. Every name must be registered.
func ParseEngines(s string) ([]string, error) {
	var names []string
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		switch name {
		case "":
		case EngineBoth:
			names = append(names, BothEngines...)
		default:
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, kvbench.NewConfigError("flag", "engine", "no engine given")
	}
	for _, name := range names {
		if err := checkEngine(name); err != nil {
			return nil, err
		}
	}
	return names, nil
}

func checkEngine(name string) error {
	if _, ok := kvbench.Engines[name]; !ok {
		return kvbench.NewConfigError("flag", "engine", "%w %q, registered: %s",
			kvbench.ErrUnknownEngine, name, strings.Join(kvbench.EngineNames(), ", "))
	}
	return nil
}

func loadWorkload(o *runOptions) (*kvbench.WorkloadConfig, error) {
	var (
		config *kvbench.WorkloadConfig
		err    error
	)
	switch {
	case o.workload != "" && o.preset != "":
		return nil, kvbench.NewConfigError("flag", "preset", "--workload and --preset are exclusive")
	case o.workload != "":
		config, err = kvbench.LoadWorkloadConfig(o.workload)
	case o.preset != "":
		config, err = workload.Preset(o.preset)
	default:
		config = kvbench.DefaultWorkloadConfig()
	}
	if err != nil {
		return nil, err
	}
	if o.duration != 0 {
		config.Duration = o.duration
	}
	if o.operations != 0 {
		config.OperationCount = o.operations
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func runBenchmark(global *globalOptions, o *runOptions, s streams) (err error) {
	logger, err := newLogger(global)
	if err != nil {
		return err
	}
	defer logger.Sync()
	config, err := loadWorkload(o)
	if err != nil {
		return err
	}
	engines, err := ParseEngines(o.engines)
	if err != nil {
		return err
	}
	props, err := kvbench.ParseProperties(o.properties)
	if err != nil {
		return err
	}
	output := strftime.Format(o.output, time.Now())

	runner := &kvbench.Runner{
		Config:           config,
		Engines:          engines,
		Properties:       props,
		DataDir:          o.dataDir,
		KeepData:         o.keepData,
		Logger:           logger,
		ProgressInterval: o.progress,
	}
	if o.export != "" {
		exporter, xerr := kvbench.NewMeasurementExporter(o.export, s.out)
		if xerr != nil {
			return xerr
		}
		defer func() {
			if cerr := exporter.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		runner.Exporter = exporter
	}
	if o.histogramLog != "" {
		f, err := os.Create(strftime.Format(o.histogramLog, time.Now()))
		if err != nil {
			return err
		}
		defer f.Close()
		runner.HistogramLog = f
	}

	logger.Info("benchmark started", zap.Strings("engines", engines), zap.Object("workload", config))
	results, runErr := runner.Run()
	if err := kvbench.WriteResults(output, results); err != nil {
		return errors.Join(runErr, err)
	}
	logger.Info("results written", zap.String("path", output))
	if err := kvbench.Render(s.out, DefaultReportFormat, kvbench.Compare(results, engines)); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func analyze(path string, o *analyzeOptions, s streams) error {
	if _, ok := kvbench.ReportFormats[o.format]; !ok {
		return kvbench.NewConfigError("flag", "format", "unknown report format %q, expected one of %s",
			o.format, strings.Join(kvbench.ReportFormatNames(), ", "))
	}
	results, err := kvbench.ReadResults(path)
	if err != nil {
		return err
	}
	return kvbench.Render(s.out, o.format, kvbench.Compare(results, o.expect))
}

func runShell(global *globalOptions, o *shellOptions, s streams) (err error) {
	logger, err := newLogger(global)
	if err != nil {
		return err
	}
	defer logger.Sync()
	props, err := kvbench.ParseProperties(o.properties)
	if err != nil {
		return err
	}
	if err := checkEngine(o.engine); err != nil {
		return err
	}
	dir, err := os.MkdirTemp(o.dataDir, shellEngineDirPattern+o.engine+"-")
	if err != nil {
		return err
	}
	if !o.keepData {
		defer os.RemoveAll(dir)
	}
	engine, err := kvbench.NewEngine(o.engine, dir, props)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	logger.Debug("shell engine opened", zap.String("engine", o.engine), zap.String("dir", dir))
	return NewShell(engine, s.in, s.out).Main()
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var cerr *kvbench.ConfigError
	if errors.As(err, &cerr) {
		var eerr *kvbench.EngineError
		// an engine which failed to open reports its config error wrapped
		if !errors.As(err, &eerr) {
			return ExitConfigError
		}
	}
	return ExitBenchmarkError
}

func Execute(args []string, s streams) int {
	root := NewRootCommand(s)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(s.err, "kvbench: %s\n", err)
		return exitCode(err)
	}
	return 0
}
