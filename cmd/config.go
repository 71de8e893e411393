package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "distfuzz"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName   = "output"
	parallelFlagName = "parallel"
	roundsFlagName   = "rounds"
	seedFlagName     = "seed"
	profileFlagName  = "profile"
	distmapFlagName  = "distmap"
	seedsFlagName    = "seeds"
	metricsFlagName  = "metrics-listen"
	simpleFlagName   = "simple"
	verboseFlagName  = "verbose"

	runParallelConfigKey     = "run.parallel"
	runRoundsConfigKey       = "run.rounds"
	runConsecutiveConfigKey  = "run.consecutive_mutations"
	runSeedConfigKey         = "run.seed"
	runMeanOverHitsConfigKey = "run.mean_over_hits"
	targetProfileConfigKey   = "target.profile"
	targetDistmapConfigKey   = "target.distmap"
	corpusSeedsConfigKey     = "corpus.seeds"
	corpusMaxSizeConfigKey   = "corpus.max_size"
	metricsListenConfigKey   = "metrics.listen"

	defaultOutputDir           = ".distfuzz"
	defaultRunParallel         = 1
	defaultRunRounds           = 0
	defaultConsecutive         = 5
	defaultProfile             = "spidermonkey"
	defaultCorpusMaxSize       = 4096
	defaultMetricsListen       = ""
	defaultMeanOverHits        = false
	defaultDistmap             = ""
	defaultSeeds               = ""
	defaultSeed                = 0
	defaultLogFilename         = ".distfuzz.log"
	defaultLogLevel            = int(slog.LevelInfo)
	defaultLogVerbose          = false
	defaultLogMaxSize          = 10
	defaultLogMaxBackups       = 3
	defaultLogMaxAge           = 28
	defaultLogCompress         = true
	envPrefix                  = "DISTFUZZ"
	logFilenameKey             = "log.filename"
	logLevelKey                = "log.level"
	logVerboseKey              = "log.verbose"
	logMaxSizeKey              = "log.max_size"
	logMaxBackupsKey           = "log.max_backups"
	logMaxAgeKey               = "log.max_age"
	logCompressKey             = "log.compress"
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultOutputDir)
	viper.SetDefault(runParallelConfigKey, defaultRunParallel)
	viper.SetDefault(runRoundsConfigKey, defaultRunRounds)
	viper.SetDefault(runConsecutiveConfigKey, defaultConsecutive)
	viper.SetDefault(runSeedConfigKey, defaultSeed)
	viper.SetDefault(runMeanOverHitsConfigKey, defaultMeanOverHits)
	viper.SetDefault(targetProfileConfigKey, defaultProfile)
	viper.SetDefault(targetDistmapConfigKey, defaultDistmap)
	viper.SetDefault(corpusSeedsConfigKey, defaultSeeds)
	viper.SetDefault(corpusMaxSizeConfigKey, defaultCorpusMaxSize)
	viper.SetDefault(metricsListenConfigKey, defaultMetricsListen)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Numeric slog levels are accepted too (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger installs a rotating file logger as the slog default.
//
// It logs at the configured level, or at Debug when verbose is set.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	logLevel := parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	if verbose || viper.GetBool(logVerboseKey) {
		logLevel = slog.LevelDebug
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
