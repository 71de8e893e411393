package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"distfuzz.dev/pkg/distfuzz/internal/adapter"
	"distfuzz.dev/pkg/distfuzz/internal/controller"
	"distfuzz.dev/pkg/distfuzz/internal/domain"
)

const workersDir = "workers"

// errNoDistanceMap is returned when fuzz is started without --distmap.
var errNoDistanceMap = errors.New("a distance map is required (--distmap or target.distmap)")

var fuzzParallelFlag int
var fuzzRoundsFlag int
var fuzzSeedFlag uint64
var fuzzProfileFlag string
var fuzzDistmapFlag string
var fuzzSeedsFlag string
var fuzzMetricsFlag string

// fuzzCmd represents the fuzz command.
var fuzzCmd = newFuzzCmd()

func newFuzzCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fuzz",
		Short: "Run a fuzzing session",
		Long:  fuzzLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			profile, err := profileLoader.Load(ctx, viper.GetString(targetProfileConfigKey))
			if err != nil {
				return err
			}

			distmap, err := loadDistanceMap(viper.GetString(targetDistmapConfigKey))
			if err != nil {
				return err
			}

			output := viper.GetString(outputFlagName)

			wf, err := fuzzWorkflow(cmd, output, profile)
			if err != nil {
				return err
			}

			_, err = wf.Fuzz(ctx, domain.FuzzArgs{
				Profile:              profile,
				DistanceMap:          distmap,
				Seeds:                viper.GetString(corpusSeedsConfigKey),
				Parallel:             viper.GetInt(runParallelConfigKey),
				Rounds:               viper.GetInt(runRoundsConfigKey),
				ConsecutiveMutations: viper.GetInt(runConsecutiveConfigKey),
				Seed:                 viper.GetUint64(runSeedConfigKey),
				CorpusSize:           viper.GetInt(corpusMaxSizeConfigKey),
				MeanOverHits:         viper.GetBool(runMeanOverHitsConfigKey),
				MetricsListen:        viper.GetString(metricsListenConfigKey),
			})

			return err
		},
	}

	configureFuzzFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(fuzzCmd)
}

func configureFuzzFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&fuzzParallelFlag, parallelFlagName, "p", viper.GetInt(runParallelConfigKey), "number of parallel fuzzing workers")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), runParallelConfigKey)

	cmd.Flags().IntVarP(&fuzzRoundsFlag, roundsFlagName, "r", viper.GetInt(runRoundsConfigKey), "rounds per worker (0 runs until interrupted)")
	bindFlagToConfig(cmd.Flags().Lookup(roundsFlagName), runRoundsConfigKey)

	cmd.Flags().Uint64Var(&fuzzSeedFlag, seedFlagName, viper.GetUint64(runSeedConfigKey), "random seed (0 picks one)")
	bindFlagToConfig(cmd.Flags().Lookup(seedFlagName), runSeedConfigKey)

	cmd.Flags().StringVar(&fuzzProfileFlag, profileFlagName, viper.GetString(targetProfileConfigKey),
		fmt.Sprintf("target profile: a YAML file or one of %v", adapter.BuiltinProfileNames()))
	bindFlagToConfig(cmd.Flags().Lookup(profileFlagName), targetProfileConfigKey)

	cmd.Flags().StringVarP(&fuzzDistmapFlag, distmapFlagName, "d", viper.GetString(targetDistmapConfigKey), "distance map file")
	bindFlagToConfig(cmd.Flags().Lookup(distmapFlagName), targetDistmapConfigKey)

	cmd.Flags().StringVar(&fuzzSeedsFlag, seedsFlagName, viper.GetString(corpusSeedsConfigKey), "directory of seed programs (*.fzil)")
	bindFlagToConfig(cmd.Flags().Lookup(seedsFlagName), corpusSeedsConfigKey)

	cmd.Flags().StringVar(&fuzzMetricsFlag, metricsFlagName, viper.GetString(metricsListenConfigKey), "serve Prometheus metrics on this address")
	bindFlagToConfig(cmd.Flags().Lookup(metricsFlagName), metricsListenConfigKey)
}

func loadDistanceMap(path string) (*domain.DistanceMap, error) {
	if path == "" {
		return nil, errNoDistanceMap
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open distance map: %w", err)
	}
	defer file.Close()

	distmap, err := domain.ParseDistanceMap(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return distmap, nil
}

// fuzzWorkflow returns the installed workflow or builds one rooted in output.
func fuzzWorkflow(cmd *cobra.Command, output string, profile adapter.Profile) (domain.Workflow, error) {
	if workflow != nil {
		return workflow, nil
	}

	store, err := adapter.NewLocalProgramStore(output)
	if err != nil {
		return nil, err
	}

	executors := func(worker int, metrics adapter.Metrics) (adapter.Executor, error) {
		return adapter.NewProcessExecutor(profile, filepath.Join(output, workersDir, strconv.Itoa(worker)), metrics)
	}

	return domain.NewWorkflow(store, traceReader, controller.NewUI(cmd, simpleFlag), executors), nil
}
