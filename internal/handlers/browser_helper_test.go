package handlers

import (
	"testing"

	"github.com/go-rod/rod/lib/launcher"
)

// skipIfNoBrowser skips browser tests on machines without a Chromium build
func skipIfNoBrowser(t *testing.T) {
	t.Helper()

	path, ok := launcher.LookPath()
	if !ok {
		t.Skip("no Chrome/Chromium found, skipping room page browser test")
	}
	t.Logf("driving room pages with %s", path)
}
