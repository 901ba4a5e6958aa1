package version

import (
	"strings"
	"testing"
)

func TestInfo_ShortensCommit(t *testing.T) {
	orig := Commit
	defer func() { Commit = orig }()

	Commit = "0123456789abcdef"
	got := Info()
	if !strings.Contains(got, "commit: 0123456,") {
		t.Errorf("Info() = %q", got)
	}
	if !strings.HasPrefix(got, "sprint_report "+Short()) {
		t.Errorf("Info() = %q", got)
	}
}
