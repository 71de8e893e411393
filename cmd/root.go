// Package cmd provides the root command and CLI setup for distfuzz.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"distfuzz.dev/pkg/distfuzz/internal/adapter"
	"distfuzz.dev/pkg/distfuzz/internal/domain"
)

// workflow is built by the fuzz command unless a test installed one.
var workflow domain.Workflow
var profileLoader adapter.ProfileLoader
var traceReader adapter.TraceReader

var outputDirFlag string
var simpleFlag bool
var verboseFlag bool
var logFileFlag string

func init() {
	configureRootFlags(rootCmd)

	profileLoader = adapter.NewLocalProfileLoader()
	traceReader = adapter.NewLocalTraceReader()
}

const distmapFormatHelp = `The distance map is a text file with one "<hex block> <distance>" pair per
line, as produced by the static analysis preprocessing step.`

const rootLongDescription = `distfuzz is a directed fuzzer for JavaScript engines. It mutates programs in a
small intermediate language, runs them against an instrumented engine and steers
the search toward target basic blocks using a precomputed distance map.

` + distmapFormatHelp

const fuzzLongDescription = `Run a fuzzing session against the configured target profile.

Workers mutate programs from the corpus, run them in the target and keep the
ones that reach new control-flow edges. Interrupt with Ctrl-C to stop; the
evaluator state is saved so the next session resumes where this one ended.

` + distmapFormatHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "distfuzz",
		Short: "Distance-guided JavaScript engine fuzzer",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(logFileFlag, verboseFlag)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&outputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for corpus, crashes and evaluator state",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, "log-file", viper.GetString(logFilenameKey), "log file path")
	bindFlagToConfig(cmd.PersistentFlags().Lookup("log-file"), logFilenameKey)

	cmd.PersistentFlags().BoolVar(&simpleFlag, simpleFlagName, false, "plain line output instead of the interactive dashboard")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}
