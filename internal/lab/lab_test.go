package lab

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingTB struct {
	testing.TB
	logs   int
	failed bool
}

func (r *recordingTB) Helper()               {}
func (r *recordingTB) Logf(string, ...any)   { r.logs++ }
func (r *recordingTB) Fatalf(string, ...any) { r.failed = true }

func TestRetrySucceedsOnLaterAttempt(t *testing.T) {
	rec := &recordingTB{TB: t}
	calls := 0
	got := Retry(rec, 3, func(attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	assert.Equal(t, 3, got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, rec.logs)
	assert.False(t, rec.failed)
}

func TestRetryFailsAfterAllAttempts(t *testing.T) {
	rec := &recordingTB{TB: t}
	calls := 0
	Retry(rec, 2, func(int) error {
		calls++
		return errors.New("always")
	})
	assert.Equal(t, 2, calls)
	assert.True(t, rec.failed)
}

func TestArtifactDirUsesEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv("PWLAB_ARTIFACTS_DIR", root)
	dir := ArtifactDir(t)
	assert.Equal(t, root+"/TestArtifactDirUsesEnv", dir)
	assert.DirExists(t, dir)
}
