package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"sprintreport/utils"
)

// 出力形式
const (
	FormatMarkdown = "markdown"
	FormatYAML     = "yaml"
	FormatCSV      = "csv"
)

// Extension は出力形式に対応する拡張子を返します
func Extension(format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatMarkdown, "md":
		return "md", nil
	case FormatYAML, "yml":
		return "yaml", nil
	case FormatCSV:
		return "csv", nil
	}
	return "", fmt.Errorf("未対応の出力形式です: %s", format)
}

// FileName は sprint-report_<slug>_<YYYYMMDD>.<ext> 形式のファイル名を返します
func FileName(sprintName, format string, now time.Time) (string, error) {
	ext, err := Extension(format)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("sprint-report_%s_%s.%s", Slug(sprintName), now.Format("20060102"), ext), nil
}

// Slug は英数字以外を '-' にまとめた小文字の文字列を返します
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "unknown"
	}
	return slug
}

// Write はディレクトリを作成してレポートを書き込み、書き込んだパスを返します
func Write(dir, name string, body []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("出力フォルダ作成エラー: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("レポート書き込みエラー: %w", err)
	}
	utils.LogInfo("レポートを書き込みました: %s (%d バイト)", path, len(body))
	return path, nil
}
