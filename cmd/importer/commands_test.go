package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sqliteEnv points configuration at a fresh SQLite file.
func sqliteEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(dir, "sales.db"))
	t.Setenv("REDIS_URL", "")
	t.Setenv("ALIASES_FILE", "")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSeedCmd(t *testing.T) {
	dir := sqliteEnv(t)
	seed := writeFile(t, dir, "seed.csv", "Branch,Total\nA,1\nB,2\n")

	out, err := execute(t, "seed", "--file", seed)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 2 records")
}

func TestSeedCmd_DefaultsToSeedFileEnv(t *testing.T) {
	dir := sqliteEnv(t)
	t.Setenv("SEED_FILE", writeFile(t, dir, "env.csv", "Branch,Total\nA,1\n"))

	out, err := execute(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 1 records")
}

func TestUploadCmd(t *testing.T) {
	dir := sqliteEnv(t)
	file := writeFile(t, dir, "acme.csv", "Sale ID,Branch,Total\n1,A,1\n1,B,2\n")

	out, err := execute(t, "upload", "--file", file, "--company", "Acme")
	require.NoError(t, err)
	assert.Contains(t, out, "company Acme")
	assert.Contains(t, out, "1 imported, 1 skipped")

	out, err = execute(t, "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "0 record counts corrected")
}

func TestUploadCmd_RequiresFile(t *testing.T) {
	sqliteEnv(t)

	_, err := execute(t, "upload")
	assert.Error(t, err)

	_, err = execute(t, "upload", "--file", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestCommands_FailOnBadConfig(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("DATABASE_URL", "x")

	_, err := execute(t, "reconcile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}
