package cmd

import (
	"fmt"
	"math"
	"slices"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"distfuzz.dev/pkg/distfuzz/internal/controller"
	"distfuzz.dev/pkg/distfuzz/internal/domain"
)

// distanceBucketBounds are the inclusive upper bounds of the summary buckets.
var distanceBucketBounds = []float64{0, 1, 2, 4, 8, 16}

// distmapCmd represents the distmap command.
var distmapCmd = newDistmapCmd()

func newDistmapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "distmap FILE",
		Short: "Validate a distance map and summarize it",
		Long: `Parse a distance map and print how its blocks are distributed by distance.
A malformed line is reported with its line number.

` + distmapFormatHelp,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			distmap, err := loadDistanceMap(args[0])
			if err != nil {
				return err
			}

			return controller.NewSimpleUI(cmd).DisplayDistanceMap(cmd.Context(), summarizeDistanceMap(args[0], distmap))
		},
	}
}

func init() {
	rootCmd.AddCommand(distmapCmd)
}

func summarizeDistanceMap(path string, distmap *domain.DistanceMap) controller.DistanceMapSummary {
	distances := distmap.Distances()

	summary := controller.DistanceMapSummary{
		Path:    path,
		Blocks:  distmap.Len(),
		Targets: distmap.Targets(),
		Min:     slices.Min(distances),
		Max:     slices.Max(distances),
		Mean:    stat.Mean(distances, nil),
	}

	counts := make([]int, len(distanceBucketBounds)+1)

	for _, distance := range distances {
		idx, _ := slices.BinarySearch(distanceBucketBounds, distance)
		counts[idx]++
	}

	lower := math.Inf(-1)

	for i, count := range counts {
		var label string

		switch {
		case i == 0:
			label = "0 (target)"
		case i == len(distanceBucketBounds):
			label = fmt.Sprintf("> %g", lower)
		default:
			label = fmt.Sprintf("(%g, %g]", lower, distanceBucketBounds[i])
		}

		if i < len(distanceBucketBounds) {
			lower = distanceBucketBounds[i]
		}

		if count > 0 {
			summary.Buckets = append(summary.Buckets, controller.DistanceBucket{Label: label, Count: count})
		}
	}

	return summary
}
