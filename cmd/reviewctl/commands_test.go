package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/research-review/internal/config"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/service"
)

const testSecret = "reviewctl-test-secret-0123456789abcdef"

func testLoader(driver string) configLoader {
	return func() (*config.Config, error) {
		return &config.Config{
			StorageDriver:  driver,
			JWTSecret:      testSecret,
			AccessTokenTTL: time.Hour,
		}, nil
	}
}

func execute(t *testing.T, load configLoader, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(load)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTokenIssue(t *testing.T) {
	id := uuid.New()

	out, err := execute(t, testLoader(config.StorageDriverMemory), "token", "issue", "--id", id.String(), "--role", "committee")
	require.NoError(t, err)

	actor, err := service.NewTokenManager(testSecret, time.Hour).ParseAccess(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, id, actor.ID)
	assert.Equal(t, valueobject.RoleCommittee, actor.Role)
}

func TestTokenIssue_RejectsSystemRole(t *testing.T) {
	_, err := execute(t, testLoader(config.StorageDriverMemory), "token", "issue", "--role", "system")
	assert.Error(t, err)

	_, err = execute(t, testLoader(config.StorageDriverMemory), "token", "issue", "--role", "dean")
	assert.Error(t, err)
}

func TestSweepRevisions_Memory(t *testing.T) {
	out, err := execute(t, testLoader(config.StorageDriverMemory), "sweep", "revisions")
	require.NoError(t, err)
	assert.Contains(t, out, "обработано заявок: 0")
}

func TestSweepAssignments_Memory(t *testing.T) {
	out, err := execute(t, testLoader(config.StorageDriverMemory), "sweep", "assignments")
	require.NoError(t, err)
	assert.Contains(t, out, "конфликтов: 0")
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	_, err := execute(t, testLoader(config.StorageDriverMemory), "migrate")
	assert.Error(t, err)
}
