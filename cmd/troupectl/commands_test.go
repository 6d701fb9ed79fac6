package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bananalabs-oss/troupe/internal/config"
	"github.com/bananalabs-oss/troupe/internal/database"
	"github.com/bananalabs-oss/troupe/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useTempDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "party.db")
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("SQLITE_PATH", path)
	return path
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements(`
		UPDATE party SET party_name = 'a';

		DELETE FROM party_member WHERE party_id = 3;
		;
	`)
	assert.Equal(t, []string{
		"UPDATE party SET party_name = 'a'",
		"DELETE FROM party_member WHERE party_id = 3",
	}, got)
	assert.Empty(t, splitStatements("  ;  ; "))
}

func TestMigrateExecFind(t *testing.T) {
	path := useTempDatabase(t)

	out, err := runCLI(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations complete")

	owner := uuid.New()
	db, err := database.Connect(config.Database{Type: "sqlite", SQLitePath: path}, zap.NewNop())
	require.NoError(t, err)
	_, err = store.New(db, zap.NewNop(), 5*time.Second).CreateParty(context.Background(), owner)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err = runCLI(t, "find", owner.String())
	require.NoError(t, err)
	assert.Contains(t, out, "is owner of party")

	script := filepath.Join(t.TempDir(), "cleanup.sql")
	require.NoError(t, os.WriteFile(script, []byte(
		"DELETE FROM party_member;\nDELETE FROM party;\n"), 0o600))

	out, err = runCLI(t, "exec", "-f", script)
	require.NoError(t, err)
	assert.Contains(t, out, "executed 2 statement(s)")

	out, err = runCLI(t, "find", owner.String())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "is not in a party"), out)
}

func TestExecStopsOnFailure(t *testing.T) {
	useTempDatabase(t)

	_, err := runCLI(t, "migrate")
	require.NoError(t, err)

	_, err = runCLI(t, "exec", "UPDATE party SET party_name = 'x'", "NOT SQL AT ALL")
	assert.Error(t, err)
}

func TestExecRequiresStatements(t *testing.T) {
	useTempDatabase(t)

	_, err := runCLI(t, "exec")
	assert.Error(t, err)
}

func TestFindRejectsBadID(t *testing.T) {
	useTempDatabase(t)

	_, err := runCLI(t, "find", "nope")
	assert.Error(t, err)
}
