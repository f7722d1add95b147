package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltfield/backend/pkg/errors"
)

func TestValidateAndRewriteRejectsNonSelect(t *testing.T) {
	v := NewSecurityValidator()

	for _, sql := range []string{
		"UPDATE wire_drops SET name = 'x'",
		"DELETE FROM wire_drops",
		"INSERT INTO rooms (id) VALUES ('r-1')",
		"DROP TABLE wire_drops",
		"SET @x = 1",
	} {
		_, err := v.ValidateAndRewrite(sql)
		require.Error(t, err, sql)
		assert.True(t, errors.IsValidation(err), sql)
	}
}

func TestValidateAndRewriteRejectsMultipleStatements(t *testing.T) {
	v := NewSecurityValidator()

	_, err := v.ValidateAndRewrite("SELECT 1; SELECT 2")

	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "single")
}

func TestValidateAndRewriteRejectsUnparsableSQL(t *testing.T) {
	v := NewSecurityValidator()

	_, err := v.ValidateAndRewrite("SELECT FROM WHERE")

	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestValidateAndRewriteRejectsUnion(t *testing.T) {
	v := NewSecurityValidator()

	_, err := v.ValidateAndRewrite("SELECT name FROM rooms UNION SELECT name FROM wire_drops")

	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "SELECT")
}

func TestValidateAndRewriteRejectsForeignTable(t *testing.T) {
	v := NewSecurityValidator()

	_, err := v.ValidateAndRewrite("SELECT * FROM users")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Contains(t, err.Error(), "users")
}

func TestValidateAndRewriteChecksSubqueryTables(t *testing.T) {
	v := NewSecurityValidator()

	_, err := v.ValidateAndRewrite(
		"SELECT name FROM wire_drops WHERE room_id IN (SELECT id FROM accounts)")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accounts")
}

func TestValidateAndRewriteRejectsSelectInto(t *testing.T) {
	v := NewSecurityValidator()

	_, err := v.ValidateAndRewrite("SELECT name FROM rooms INTO OUTFILE '/tmp/out'")

	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestValidateAndRewriteAllowsReportTables(t *testing.T) {
	v := NewSecurityValidator()

	rewritten, err := v.ValidateAndRewrite(
		"SELECT d.name, r.name FROM wire_drops d JOIN rooms r ON d.room_id = r.id WHERE d.project_id = 'p-1'")

	require.NoError(t, err)
	assert.Contains(t, rewritten, "wire_drops")
	assert.Contains(t, rewritten, "rooms")
}

func TestValidateAndRewriteTableNameCaseInsensitive(t *testing.T) {
	v := NewSecurityValidator()

	rewritten, err := v.ValidateAndRewrite("SELECT * FROM WIRE_DROPS")

	require.NoError(t, err)
	assert.Contains(t, rewritten, "WIRE_DROPS")
}

func TestValidateAndRewriteInjectsLimit(t *testing.T) {
	v := NewSecurityValidator()

	rewritten, err := v.ValidateAndRewrite("SELECT name FROM wire_drops")

	require.NoError(t, err)
	assert.Contains(t, rewritten, "LIMIT 1000")
}

func TestValidateAndRewriteCapsOversizedLimit(t *testing.T) {
	v := NewSecurityValidator()

	rewritten, err := v.ValidateAndRewrite("SELECT name FROM wire_drops LIMIT 50000")

	require.NoError(t, err)
	assert.Contains(t, rewritten, "LIMIT 1000")
	assert.NotContains(t, rewritten, "50000")
}

func TestValidateAndRewriteKeepsSmallLimit(t *testing.T) {
	v := NewSecurityValidator()

	rewritten, err := v.ValidateAndRewrite("SELECT name FROM wire_drops LIMIT 25")

	require.NoError(t, err)
	assert.Contains(t, rewritten, "LIMIT 25")
}

func TestValidateAndRewriteStripsRowLocks(t *testing.T) {
	v := NewSecurityValidator()

	rewritten, err := v.ValidateAndRewrite("SELECT * FROM wire_drops FOR UPDATE")

	require.NoError(t, err)
	assert.NotContains(t, rewritten, "FOR UPDATE")
}
