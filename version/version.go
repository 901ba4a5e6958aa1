// Package version はビルド時に埋め込むバージョン情報です。
// 例: go build -ldflags="-X sprintreport/version.Version=v1.0.0"
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Short はバージョン文字列を返します
func Short() string {
	return Version
}

// Info はコミットとビルド日時を含む1行のバージョン情報を返します
func Info() string {
	commit := Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("sprint_report %s (commit: %s, built: %s, go: %s)",
		Version, commit, BuildDate, runtime.Version())
}
