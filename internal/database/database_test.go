package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bananalabs-oss/troupe/internal/config"
	"github.com/bananalabs-oss/troupe/internal/models"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConnectAndMigrateSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "party.db")

	db, err := Connect(config.Database{Type: "embedded-file", SQLitePath: path}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(ctx, db, zap.NewNop()))
	// Second run is a no-op.
	require.NoError(t, Migrate(ctx, db, zap.NewNop()))

	party := &models.Party{OwnerID: uuid.New()}
	_, err = db.NewInsert().Model(party).Exec(ctx)
	require.NoError(t, err)
	assert.NotZero(t, party.ID)

	member := &models.PartyMember{PartyID: party.ID, MemberID: party.OwnerID}
	_, err = db.NewInsert().Model(member).Exec(ctx)
	require.NoError(t, err)

	// The same player cannot hold a second membership row anywhere.
	dup := &models.PartyMember{PartyID: party.ID, MemberID: party.OwnerID}
	_, err = db.NewInsert().Model(dup).Exec(ctx)
	assert.Error(t, err)

	// Memberships must reference a live party.
	orphan := &models.PartyMember{PartyID: party.ID + 100, MemberID: uuid.New()}
	_, err = db.NewInsert().Model(orphan).Exec(ctx)
	assert.Error(t, err)
}

func TestConnectRejectsUnknownBackend(t *testing.T) {
	_, err := Connect(config.Database{Type: "oracle"}, zap.NewNop())
	assert.Error(t, err)
}

func TestIsDuplicateIndex(t *testing.T) {
	assert.True(t, isDuplicateIndex(&mysql.MySQLError{Number: mysqlDupKeyName}))
	assert.False(t, isDuplicateIndex(&mysql.MySQLError{Number: 1062}))
	assert.False(t, isDuplicateIndex(assert.AnError))
}
