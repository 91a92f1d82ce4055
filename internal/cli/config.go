package cli

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/roach88/persistor/internal/model"
	"github.com/roach88/persistor/internal/varstore"
)

const (
	configBaseName = "persistor"
	configFileName = configBaseName + ".yaml"
	envPrefix      = "PERSISTOR"

	persistFormatKey = "persist.format"

	varsDBKey       = "vars.db"
	varsRedisKey    = "vars.redis"
	varsRedisSetKey = "vars.redis_key"

	checkParallelKey = "check.parallel"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultVarsDB        = ".persistor.db"
	defaultCheckParallel = 4
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
)

// newConfig builds the configuration for one command invocation. Values come
// from flags, PERSISTOR_* environment variables, then persistor.yaml in the
// working directory (or the file named by --config), then defaults.
func newConfig(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configBaseName)
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(persistFormatKey, string(model.DefaultFileFormat))
	v.SetDefault(varsDBKey, defaultVarsDB)
	v.SetDefault(varsRedisKey, "")
	v.SetDefault(varsRedisSetKey, varstore.DefaultRedisKey)
	v.SetDefault(checkParallelKey, defaultCheckParallel)
	v.SetDefault(logFilenameKey, "")
	v.SetDefault(logLevelKey, "info")
	v.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	v.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	v.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	v.SetDefault(logCompressKey, true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && configFile == "" {
			return v, nil
		}
		return nil, err
	}
	return v, nil
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	switch level {
	case "":
		return defaultLevel
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}
	return defaultLevel
}

// newLogger returns the command logger. With a log file configured, records
// go to a rotating file; otherwise warnings and above go to stderr, or
// everything down to debug when verbose.
func newLogger(v *viper.Viper, logFile string, verbose bool, stderr io.Writer) (*slog.Logger, io.Closer) {
	if logFile == "" {
		logFile = v.GetString(logFilenameKey)
	}

	level := parseSlogLevel(v.GetString(logLevelKey), slog.LevelInfo)
	if verbose {
		level = slog.LevelDebug
	}

	if strings.TrimSpace(logFile) == "" {
		if !verbose {
			level = max(level, slog.LevelWarn)
		}
		return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})), nopCloser{}
	}

	w := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    v.GetInt(logMaxSizeKey),
		MaxBackups: v.GetInt(logMaxBackupsKey),
		MaxAge:     v.GetInt(logMaxAgeKey),
		Compress:   v.GetBool(logCompressKey),
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{AddSource: true, Level: level})), w
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
