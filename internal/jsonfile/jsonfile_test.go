package jsonfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type user struct {
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Age       int      `json:"age"`
	Hobbies   []string `json:"hobbies,omitempty"`
}

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "user.json")

	require.NoError(t, Write(path, user{FirstName: "Emily", LastName: "Johnson", Age: 28}))

	var got user
	require.NoError(t, Read(path, &got))
	assert.Equal(t, "Emily", got.FirstName)
	assert.Equal(t, 28, got.Age)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"lastName\": \"Johnson\"")
}

func TestUpdateModifiesAndSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.json")
	require.NoError(t, Write(path, user{FirstName: "Emily", LastName: "Johnson", Age: 28}))

	err := Update(path, func(u *user) error {
		u.LastName = "Sharma"
		u.Age++
		u.Hobbies = append(u.Hobbies, "reading")
		return nil
	})
	require.NoError(t, err)

	var got user
	require.NoError(t, Read(path, &got))
	assert.Equal(t, "Sharma", got.LastName)
	assert.Equal(t, 29, got.Age)
	assert.Equal(t, []string{"reading"}, got.Hobbies)
}

func TestUpdateLeavesFileOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.json")
	require.NoError(t, Write(path, user{FirstName: "Emily"}))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = Update(path, func(u *user) error {
		u.FirstName = "changed"
		return boom
	})
	require.ErrorIs(t, err, boom)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()

	var u user
	err := Read(filepath.Join(dir, "missing.json"), &u)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	err = Read(bad, &u)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user.json")
	for i := 0; i < 3; i++ {
		require.NoError(t, Write(path, user{Age: i}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "user.json", entries[0].Name())
}

func TestRoundTripProperty(t *testing.T) {
	dir := t.TempDir()
	rapid.Check(t, func(rt *rapid.T) {
		in := user{
			FirstName: rapid.String().Draw(rt, "first"),
			LastName:  rapid.String().Draw(rt, "last"),
			Age:       rapid.IntRange(0, 150).Draw(rt, "age"),
		}
		path := filepath.Join(dir, "prop.json")
		if err := Write(path, in); err != nil {
			rt.Fatalf("write: %v", err)
		}
		var out user
		if err := Read(path, &out); err != nil {
			rt.Fatalf("read: %v", err)
		}
		if in.FirstName != out.FirstName || in.LastName != out.LastName || in.Age != out.Age {
			rt.Fatalf("round trip mismatch: %+v != %+v", in, out)
		}
	})
}
