package cmd

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "distfuzz", configBaseName)
	assert.Equal(t, "distfuzz.yaml", configFileName)
	assert.Equal(t, ".", configFolderPath)
	assert.Equal(t, "output", outputFlagName)
	assert.Equal(t, "parallel", parallelFlagName)
	assert.Equal(t, "run.parallel", runParallelConfigKey)
	assert.Equal(t, "run.rounds", runRoundsConfigKey)
	assert.Equal(t, "run.consecutive_mutations", runConsecutiveConfigKey)
	assert.Equal(t, "target.profile", targetProfileConfigKey)
	assert.Equal(t, "target.distmap", targetDistmapConfigKey)
	assert.Equal(t, "corpus.seeds", corpusSeedsConfigKey)
	assert.Equal(t, "corpus.max_size", corpusMaxSizeConfigKey)
	assert.Equal(t, "metrics.listen", metricsListenConfigKey)
	assert.Equal(t, ".distfuzz", defaultOutputDir)
	assert.Equal(t, 1, defaultRunParallel)
	assert.Equal(t, 5, defaultConsecutive)
	assert.Equal(t, 4096, defaultCorpusMaxSize)
	assert.Equal(t, "DISTFUZZ", envPrefix)
}

func TestConfigVersionConstants(t *testing.T) {
	assert.Equal(t, "version", configVersionKey)
	assert.Equal(t, 1, currentConfigVersion)
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"loud", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.value, slog.LevelInfo))
		})
	}
}
