package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/cloud-scan/controlcenter/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runUserCmd(t *testing.T, dataDir string, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	oldExit := exit
	code := -1
	exit = func(c int) { code = c }
	defer func() { exit = oldExit }()

	cmd := newUserCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	require.NoError(t, cmd.Execute())
	return out.String(), errOut.String(), code
}

func TestUserAddCreatesAccount(t *testing.T) {
	dir := t.TempDir()
	out, _, code := runUserCmd(t, dir, "add", "alice", "--password", "secret")
	assert.Equal(t, -1, code)
	assert.Contains(t, out, "alice")

	store := auth.NewUserStore(filepath.Join(dir, "passwd"))
	u, err := store.Show("alice")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, u.Role)
}

func TestUserAddDuplicateRefuses(t *testing.T) {
	dir := t.TempDir()
	runUserCmd(t, dir, "add", "alice", "--password", "secret")

	_, errOut, code := runUserCmd(t, dir, "add", "alice", "--password", "other")
	assert.Equal(t, ExitRefused, code)
	assert.NotEmpty(t, errOut)
}

func TestUserShowUnknownUserFails(t *testing.T) {
	dir := t.TempDir()
	_, _, code := runUserCmd(t, dir, "show", "nobody")
	assert.Equal(t, ExitNotFound, code)
}

func TestUserRemoveWithoutForceRefuses(t *testing.T) {
	dir := t.TempDir()
	runUserCmd(t, dir, "add", "alice", "--password", "secret")

	_, errOut, code := runUserCmd(t, dir, "remove", "alice")
	assert.Equal(t, ExitRefused, code)
	assert.Contains(t, errOut, "--force")

	store := auth.NewUserStore(filepath.Join(dir, "passwd"))
	_, err := store.Show("alice")
	assert.NoError(t, err, "user must still exist after a refused removal")
}

func TestUserRemoveWithForceSucceeds(t *testing.T) {
	dir := t.TempDir()
	runUserCmd(t, dir, "add", "alice", "--password", "secret")

	_, _, code := runUserCmd(t, dir, "remove", "alice", "--force")
	assert.Equal(t, -1, code)

	store := auth.NewUserStore(filepath.Join(dir, "passwd"))
	_, err := store.Show("alice")
	assert.Error(t, err)
}

func TestUserRoleChangesRole(t *testing.T) {
	dir := t.TempDir()
	runUserCmd(t, dir, "add", "alice", "--password", "secret")

	_, _, code := runUserCmd(t, dir, "role", "alice", "operator")
	assert.Equal(t, -1, code)

	store := auth.NewUserStore(filepath.Join(dir, "passwd"))
	u, err := store.Show("alice")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleOperator, u.Role)
}

func TestUserRoleUnknownUserFails(t *testing.T) {
	dir := t.TempDir()
	_, _, code := runUserCmd(t, dir, "role", "nobody", "operator")
	assert.Equal(t, ExitNotFound, code)
}
