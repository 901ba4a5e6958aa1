package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = newConsoleLogger(os.Stderr)
)

func newConsoleLogger(out io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	return zerolog.New(output).With().Timestamp().Logger()
}

// InitLogger はログレベルと出力形式(console / json)を設定します
func InitLogger(level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var l zerolog.Logger
	if strings.EqualFold(format, "json") {
		zerolog.TimeFieldFormat = time.RFC3339
		l = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		l = newConsoleLogger(os.Stderr)
	}

	SetLogger(l.Level(lvl))
}

// SetLogger はパッケージ全体で使うロガーを差し替えます
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Logger は構造化フィールド付きで書きたい場合のためのロガーを返します
func Logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

// WithRunID は以降のすべてのログに実行IDを付与します
func WithRunID(runID string) {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.With().Str("run_id", runID).Logger()
}

// LogDebug はデバッグレベルのメッセージをログに記録します
func LogDebug(format string, v ...interface{}) {
	Logger().Debug().Msg(fmt.Sprintf(format, v...))
}

// LogInfo は情報レベルのメッセージをログに記録します
func LogInfo(format string, v ...interface{}) {
	Logger().Info().Msg(fmt.Sprintf(format, v...))
}

// LogWarn は警告レベルのメッセージをログに記録します
func LogWarn(format string, v ...interface{}) {
	Logger().Warn().Msg(fmt.Sprintf(format, v...))
}

// LogError はエラーレベルのメッセージをログに記録します
func LogError(format string, v ...interface{}) {
	Logger().Error().Msg(fmt.Sprintf(format, v...))
}

// TrackTime は関数の実行時間を計測して出力するユーティリティです
func TrackTime(start time.Time, name string) {
	elapsed := time.Since(start)
	Logger().Info().Dur("elapsed", elapsed).Msg(fmt.Sprintf("%s 完了時間: %s", name, elapsed))
}
