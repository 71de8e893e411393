package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

var liftJSFlag bool

// liftCmd represents the lift command.
var liftCmd = newLiftCmd()

func newLiftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lift FILE",
		Short: "Parse a program file and print it normalized",
		Long: `Parse a program in the text format used for seeds, corpus entries and crashes,
renumber its variables and print it together with its size. With --js the
program is printed as the JavaScript the target runs, without profile code.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open program: %w", err)
			}
			defer file.Close()

			program, err := m.ParseProgram(file)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			if liftJSFlag {
				cmd.Print(m.LiftJavaScript(program))
				return nil
			}

			cmd.Print(m.Lift(program))
			cmd.Printf("# %d instruction(s), %d variable(s)\n", program.Size(), program.NumVariables())

			return nil
		},
	}

	cmd.Flags().BoolVar(&liftJSFlag, "js", false, "print the program as JavaScript")

	return cmd
}

func init() {
	rootCmd.AddCommand(liftCmd)
}
