package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"distfuzz.dev/pkg/distfuzz/internal/adapter"
	"distfuzz.dev/pkg/distfuzz/internal/controller"
	"distfuzz.dev/pkg/distfuzz/internal/domain"
	m "distfuzz.dev/pkg/distfuzz/internal/model"
	"distfuzz.dev/pkg/distfuzz/pkg"
)

// errShowNeedsFile is returned when --show is used without a crash log.
var errShowNeedsFile = errors.New("--show needs a crash log FILE")

var crashesShowFlag int

// crashesCmd represents the crashes command.
var crashesCmd = newCrashesCmd()

func newCrashesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crashes [FILE]",
		Short: "List recorded crashes",
		Long: `List the crashes recorded by fuzzing sessions. Without FILE every crash log
in the output directory is listed; sessions without crashes are skipped.

With --show N the record at index N of FILE is printed in full: the program,
its diff against the parent it was mutated from and the target output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := controller.NewSimpleUI(cmd)

			if crashesShowFlag >= 0 {
				if len(args) == 0 {
					return errShowNeedsFile
				}

				record, err := readCrash(args[0], uint64(crashesShowFlag))
				if err != nil {
					return err
				}

				return ui.DisplayCrash(cmd.Context(), record)
			}

			paths := args
			if len(paths) == 0 {
				dir := filepath.Join(viper.GetString(outputFlagName), adapter.CrashesDir)

				var err error

				paths, err = filepath.Glob(filepath.Join(dir, domain.CrashLogPattern))
				if err != nil {
					return fmt.Errorf("list crash logs: %w", err)
				}
			}

			logs := make([]controller.CrashLog, 0, len(paths))

			for _, path := range paths {
				crashLog, err := readCrashLog(path)
				if err != nil {
					return err
				}

				if len(crashLog.Records) > 0 || len(args) > 0 {
					logs = append(logs, crashLog)
				}
			}

			return ui.DisplayCrashes(cmd.Context(), logs)
		},
	}

	cmd.Flags().IntVar(&crashesShowFlag, "show", -1, "print the record at this index of FILE in full")

	return cmd
}

func init() {
	rootCmd.AddCommand(crashesCmd)
}

func readCrashLog(path string) (controller.CrashLog, error) {
	spill, err := pkg.OpenFileSpill[m.CrashRecord](path)
	if err != nil {
		return controller.CrashLog{}, fmt.Errorf("%s: %w", path, err)
	}
	defer spill.Close()

	records := make([]m.CrashRecord, 0, spill.Len())

	err = spill.Range(func(_ uint64, record m.CrashRecord) error {
		records = append(records, record)
		return nil
	})
	if err != nil {
		return controller.CrashLog{}, fmt.Errorf("%s: %w", path, err)
	}

	return controller.CrashLog{Path: path, Records: records}, nil
}

func readCrash(path string, index uint64) (m.CrashRecord, error) {
	spill, err := pkg.OpenFileSpill[m.CrashRecord](path)
	if err != nil {
		return m.CrashRecord{}, fmt.Errorf("%s: %w", path, err)
	}
	defer spill.Close()

	record, err := spill.Get(index)
	if err != nil {
		return m.CrashRecord{}, fmt.Errorf("%s: %w", path, err)
	}

	return record, nil
}
