package e2e_test

import (
	"os"
	"testing"

	"github.com/glizzus/jukebox/e2e"
)

func TestMain(m *testing.M) {
	code := m.Run()
	e2e.TerminateRedisForE2E()
	os.Exit(code)
}
