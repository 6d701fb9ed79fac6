// Package store persists parties and memberships.
//
// Every method bounds its backend calls with the configured timeout and
// reports backend failures as apperrors.KindStorageUnavailable. A missing
// row is never an error: it is reported as false, zero or RoleNone.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	apperrors "github.com/bananalabs-oss/troupe/internal/errors"
	"github.com/bananalabs-oss/troupe/internal/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// PartyStore is the persistence contract used by the party service.
type PartyStore interface {
	CreateParty(ctx context.Context, ownerID uuid.UUID) (int64, error)
	Invite(ctx context.Context, partyID int64, memberID uuid.UUID) error
	Kick(ctx context.Context, partyID int64, memberID uuid.UUID) error
	Leave(ctx context.Context, partyID int64, actorID uuid.UUID) (disbanded bool, err error)
	IsMember(ctx context.Context, partyID int64, memberID uuid.UUID) (bool, error)
	Role(ctx context.Context, partyID int64, memberID uuid.UUID) (models.Role, error)
	FindPartyOf(ctx context.Context, playerID uuid.UUID) (int64, bool, error)
	SetName(ctx context.Context, partyID int64, actorID uuid.UUID, name string) (bool, error)
	MemberCount(ctx context.Context, partyID int64) (int, error)
	Members(ctx context.Context, partyID int64) ([]uuid.UUID, error)
	Get(ctx context.Context, partyID int64) (*models.Party, error)
	ExecuteRaw(ctx context.Context, statements []string) error
}

// Store implements PartyStore on bun. Dialect differences between the
// embedded and networked backends are handled by bun.
type Store struct {
	db      *bun.DB
	log     *zap.Logger
	timeout time.Duration
}

var _ PartyStore = (*Store)(nil)

func New(db *bun.DB, log *zap.Logger, timeout time.Duration) *Store {
	return &Store{db: db, log: log, timeout: timeout}
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) fail(op string, err error) error {
	s.log.Warn("storage operation failed", zap.String("op", op), zap.Error(err))
	return apperrors.Unavailable(op, err)
}

func (s *Store) CreateParty(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	now := time.Now().UTC()
	party := &models.Party{
		OwnerID:   ownerID,
		CreatedAt: now,
	}

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(party).Exec(ctx); err != nil {
			return err
		}
		member := &models.PartyMember{
			PartyID:  party.ID,
			MemberID: ownerID,
			JoinedAt: now,
		}
		_, err := tx.NewInsert().Model(member).Exec(ctx)
		return err
	})
	if err != nil {
		return 0, s.fail("create_party", err)
	}
	return party.ID, nil
}

func (s *Store) Invite(ctx context.Context, partyID int64, memberID uuid.UUID) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	member := &models.PartyMember{
		PartyID:  partyID,
		MemberID: memberID,
		JoinedAt: time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(member).Exec(ctx); err != nil {
		return s.fail("invite", err)
	}
	return nil
}

// Kick removes one membership row. Removing a row that does not exist succeeds.
func (s *Store) Kick(ctx context.Context, partyID int64, memberID uuid.UUID) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := deleteMember(ctx, s.db, partyID, memberID); err != nil {
		return s.fail("kick", err)
	}
	return nil
}

// Leave removes actorID from the party. When actorID owns the party, every
// membership row and then the party row are deleted in one transaction.
// Leaving a party that no longer exists is a no-op.
func (s *Store) Leave(ctx context.Context, partyID int64, actorID uuid.UUID) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var disbanded bool
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		owner, found, err := ownerOf(ctx, tx, partyID)
		if err != nil || !found {
			return err
		}

		if owner != actorID {
			return deleteMember(ctx, tx, partyID, actorID)
		}

		_, err = tx.NewDelete().
			Model((*models.PartyMember)(nil)).
			Where("party_id = ?", partyID).
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = tx.NewDelete().
			Model((*models.Party)(nil)).
			Where("party_id = ?", partyID).
			Exec(ctx)
		if err != nil {
			return err
		}
		disbanded = true
		return nil
	})
	if err != nil {
		return false, s.fail("leave", err)
	}
	return disbanded, nil
}

func (s *Store) IsMember(ctx context.Context, partyID int64, memberID uuid.UUID) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	ok, err := isMember(ctx, s.db, partyID, memberID)
	if err != nil {
		return false, s.fail("is_member", err)
	}
	return ok, nil
}

// Role checks ownership before membership.
func (s *Store) Role(ctx context.Context, partyID int64, memberID uuid.UUID) (models.Role, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	owner, found, err := ownerOf(ctx, s.db, partyID)
	if err != nil {
		return models.RoleNone, s.fail("role", err)
	}
	if found && owner == memberID {
		return models.RoleOwner, nil
	}

	ok, err := isMember(ctx, s.db, partyID, memberID)
	if err != nil {
		return models.RoleNone, s.fail("role", err)
	}
	if ok {
		return models.RoleMember, nil
	}
	return models.RoleNone, nil
}

// FindPartyOf returns the party the player belongs to. A party the player
// owns wins over any membership row, so a stale membership elsewhere never
// hides ownership.
func (s *Store) FindPartyOf(ctx context.Context, playerID uuid.UUID) (int64, bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var partyID int64
	err := s.db.NewSelect().
		Model((*models.Party)(nil)).
		Column("party_id").
		Where("party_owner_id = ?", playerID).
		OrderExpr("party_id ASC").
		Limit(1).
		Scan(ctx, &partyID)
	switch {
	case err == nil:
		return partyID, true, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, false, s.fail("find_party_of", err)
	}

	err = s.db.NewSelect().
		Model((*models.PartyMember)(nil)).
		Column("party_id").
		Where("party_member_id = ?", playerID).
		OrderExpr("party_id ASC").
		Limit(1).
		Scan(ctx, &partyID)
	switch {
	case err == nil:
		return partyID, true, nil
	case errors.Is(err, sql.ErrNoRows):
		return 0, false, nil
	default:
		return 0, false, s.fail("find_party_of", err)
	}
}

// SetName renames the party if actorID is its owner. It reports false,
// without error, when actorID is not the owner or the party is gone.
func (s *Store) SetName(ctx context.Context, partyID int64, actorID uuid.UUID, name string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var renamed bool
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		owner, found, err := ownerOf(ctx, tx, partyID)
		if err != nil || !found || owner != actorID {
			return err
		}
		_, err = tx.NewUpdate().
			Model((*models.Party)(nil)).
			Set("party_name = ?", name).
			Where("party_id = ?", partyID).
			Exec(ctx)
		if err != nil {
			return err
		}
		renamed = true
		return nil
	})
	if err != nil {
		return false, s.fail("set_name", err)
	}
	return renamed, nil
}

func (s *Store) MemberCount(ctx context.Context, partyID int64) (int, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	n, err := s.db.NewSelect().
		Model((*models.PartyMember)(nil)).
		Where("party_id = ?", partyID).
		Count(ctx)
	if err != nil {
		return 0, s.fail("member_count", err)
	}
	return n, nil
}

// Members lists member ids in join order.
func (s *Store) Members(ctx context.Context, partyID int64) ([]uuid.UUID, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var rows []models.PartyMember
	err := s.db.NewSelect().
		Model(&rows).
		Where("party_id = ?", partyID).
		OrderExpr("joined_at ASC, party_member_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, s.fail("members", err)
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.MemberID)
	}
	return ids, nil
}

// Get loads a party with its members, or nil if it does not exist.
func (s *Store) Get(ctx context.Context, partyID int64) (*models.Party, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	party := new(models.Party)
	err := s.db.NewSelect().
		Model(party).
		Relation("Members", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("pm.joined_at ASC, pm.party_member_id ASC")
		}).
		Where("p.party_id = ?", partyID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("get", err)
	}
	return party, nil
}

// ExecuteRaw runs administrative statements in order. It stops at the first
// failure and does not roll back statements that already ran.
func (s *Store) ExecuteRaw(ctx context.Context, statements []string) error {
	for i, stmt := range statements {
		if err := s.execOne(ctx, stmt); err != nil {
			s.log.Warn("raw statement failed", zap.Int("index", i), zap.Error(err))
			return &apperrors.Error{
				Kind:     apperrors.KindStorageUnavailable,
				Message:  "execute_raw",
				Metadata: map[string]string{"index": strconv.Itoa(i)},
				Cause:    err,
			}
		}
	}
	s.log.Info("raw statements executed", zap.Int("count", len(statements)))
	return nil
}

func (s *Store) execOne(ctx context.Context, stmt string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

// --- Helpers usable inside and outside transactions ---

func ownerOf(ctx context.Context, db bun.IDB, partyID int64) (uuid.UUID, bool, error) {
	party := new(models.Party)
	err := db.NewSelect().
		Model(party).
		Column("party_owner_id").
		Where("party_id = ?", partyID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return party.OwnerID, true, nil
}

func isMember(ctx context.Context, db bun.IDB, partyID int64, memberID uuid.UUID) (bool, error) {
	return db.NewSelect().
		Model((*models.PartyMember)(nil)).
		Where("party_id = ? AND party_member_id = ?", partyID, memberID).
		Exists(ctx)
}

func deleteMember(ctx context.Context, db bun.IDB, partyID int64, memberID uuid.UUID) error {
	_, err := db.NewDelete().
		Model((*models.PartyMember)(nil)).
		Where("party_id = ? AND party_member_id = ?", partyID, memberID).
		Exec(ctx)
	return err
}
