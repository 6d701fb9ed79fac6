package parties

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/bananalabs-oss/troupe/internal/errors"
	"github.com/bananalabs-oss/troupe/internal/events"
	"github.com/bananalabs-oss/troupe/internal/metrics"
	"github.com/bananalabs-oss/troupe/internal/models"
	"github.com/bananalabs-oss/troupe/internal/session"
	"github.com/bananalabs-oss/troupe/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 3 * time.Second

	// A party lookup can race with the actor moving to another party
	// between finding and locking it; retry this many times.
	lockAttempts = 3
)

// Capability grants access to privileged operations.
type Capability string

const CapabilityPartyLookup Capability = "party.lookup"

// Caller identifies whoever invokes a privileged operation.
type Caller struct {
	ID           uuid.UUID
	Capabilities []Capability
}

func (c Caller) Can(capability Capability) bool {
	return slices.Contains(c.Capabilities, capability)
}

// LeaveResult says what a leave did.
type LeaveResult struct {
	PartyID   int64
	Disbanded bool
}

// Lookup is a player's standing as seen by a privileged lookup. Role is
// RoleNone when the player is in no party.
type Lookup struct {
	PartyID int64       `json:"party_id,omitempty"`
	Role    models.Role `json:"role"`
}

type Options struct {
	// SizeLimit caps members per party, owner included. Zero means unlimited.
	SizeLimit int
	// Timeout bounds a whole operation, lock waits included.
	Timeout  time.Duration
	Notifier events.Notifier
	Metrics  *metrics.Metrics
}

// Service enforces party rules on top of a PartyStore. Mutations on the same
// party are serialized; so are changes to which party a player belongs to.
// Locks are always taken party first, then player.
type Service struct {
	store     store.PartyStore
	sessions  session.Provider
	notifier  events.Notifier
	metrics   *metrics.Metrics
	log       *zap.Logger
	locks     *lockTable
	sizeLimit int
	timeout   time.Duration
}

func NewService(st store.PartyStore, sessions session.Provider, log *zap.Logger, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Notifier == nil {
		opts.Notifier = events.Nop{}
	}
	return &Service{
		store:     st,
		sessions:  sessions,
		notifier:  opts.Notifier,
		metrics:   opts.Metrics,
		log:       log,
		locks:     newLockTable(),
		sizeLimit: opts.SizeLimit,
		timeout:   opts.Timeout,
	}
}

// --- Player operations ---

// Create makes actor the owner of a new party.
func (s *Service) Create(ctx context.Context, actor uuid.UUID) (int64, error) {
	var partyID int64
	err := s.run(ctx, "create", func(ctx context.Context) error {
		unlock, err := s.lock(ctx, playerKey(actor))
		if err != nil {
			return err
		}
		defer unlock()

		if _, found, err := s.store.FindPartyOf(ctx, actor); err != nil {
			return err
		} else if found {
			return apperrors.ErrAlreadyInParty
		}

		partyID, err = s.store.CreateParty(ctx, actor)
		if err != nil {
			return err
		}
		s.notify(ctx, events.Event{Kind: events.KindCreated, PartyID: partyID, Actor: actor})
		return nil
	})
	return partyID, err
}

// Invite adds target to the party actor owns.
func (s *Service) Invite(ctx context.Context, actor, target uuid.UUID) error {
	return s.run(ctx, "invite", func(ctx context.Context) error {
		partyID, role, unlock, err := s.lockActorParty(ctx, actor)
		if err != nil {
			return err
		}
		defer unlock()

		if role != models.RoleOwner {
			return apperrors.ErrNotOwner
		}

		member, err := s.store.IsMember(ctx, partyID, target)
		if err != nil {
			return err
		}
		if member {
			return apperrors.ErrAlreadyMember
		}

		unlockTarget, err := s.lock(ctx, playerKey(target))
		if err != nil {
			return err
		}
		defer unlockTarget()

		if _, found, err := s.store.FindPartyOf(ctx, target); err != nil {
			return err
		} else if found {
			return apperrors.ErrTargetInAnotherParty
		}

		if s.sizeLimit > 0 {
			count, err := s.store.MemberCount(ctx, partyID)
			if err != nil {
				return err
			}
			if count >= s.sizeLimit {
				return apperrors.WithMetadata(apperrors.KindPartyFull, "party at size limit", map[string]string{
					"count": strconv.Itoa(count),
					"limit": strconv.Itoa(s.sizeLimit),
				})
			}
		}

		if err := s.store.Invite(ctx, partyID, target); err != nil {
			return err
		}
		s.notify(ctx, events.Event{Kind: events.KindInvited, PartyID: partyID, Actor: actor, Target: &target})
		return nil
	})
}

// Kick removes target from the party actor owns. Owners leave instead.
func (s *Service) Kick(ctx context.Context, actor, target uuid.UUID) error {
	return s.run(ctx, "kick", func(ctx context.Context) error {
		partyID, role, unlock, err := s.lockActorParty(ctx, actor)
		if err != nil {
			return err
		}
		defer unlock()

		if role != models.RoleOwner {
			return apperrors.ErrNotOwner
		}
		if actor == target {
			return apperrors.ErrCannotKickSelf
		}

		member, err := s.store.IsMember(ctx, partyID, target)
		if err != nil {
			return err
		}
		if !member {
			return apperrors.ErrNotAMember
		}

		if err := s.store.Kick(ctx, partyID, target); err != nil {
			return err
		}
		s.notify(ctx, events.Event{Kind: events.KindKicked, PartyID: partyID, Actor: actor, Target: &target})
		return nil
	})
}

// Leave removes actor from their party. An owner leaving disbands it.
func (s *Service) Leave(ctx context.Context, actor uuid.UUID) (LeaveResult, error) {
	var res LeaveResult
	err := s.run(ctx, "leave", func(ctx context.Context) error {
		var err error
		res, err = s.leave(ctx, actor)
		return err
	})
	return res, err
}

func (s *Service) leave(ctx context.Context, actor uuid.UUID) (LeaveResult, error) {
	partyID, role, unlock, err := s.lockActorParty(ctx, actor)
	if err != nil {
		return LeaveResult{}, err
	}
	defer unlock()

	var members []uuid.UUID
	if role == models.RoleOwner {
		if members, err = s.store.Members(ctx, partyID); err != nil {
			return LeaveResult{}, err
		}
	}

	disbanded, err := s.store.Leave(ctx, partyID, actor)
	if err != nil {
		return LeaveResult{}, err
	}

	if disbanded {
		s.notify(ctx, events.Event{Kind: events.KindDisbanded, PartyID: partyID, Actor: actor, Members: members})
	} else {
		s.notify(ctx, events.Event{Kind: events.KindLeft, PartyID: partyID, Actor: actor})
	}
	return LeaveResult{PartyID: partyID, Disbanded: disbanded}, nil
}

// Rename sets the display name of the party actor owns.
func (s *Service) Rename(ctx context.Context, actor uuid.UUID, name string) error {
	return s.run(ctx, "rename", func(ctx context.Context) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return apperrors.New(apperrors.KindInvalidRequest, "empty party name")
		}

		partyID, role, unlock, err := s.lockActorParty(ctx, actor)
		if err != nil {
			return err
		}
		defer unlock()

		if role != models.RoleOwner {
			return apperrors.ErrNotOwner
		}
		if utf8.RuneCountInString(name) > models.MaxNameLength {
			return apperrors.WithMetadata(apperrors.KindNameTooLong, "party name too long", map[string]string{
				"max": strconv.Itoa(models.MaxNameLength),
			})
		}

		renamed, err := s.store.SetName(ctx, partyID, actor, name)
		if err != nil {
			return err
		}
		if !renamed {
			return apperrors.ErrNotOwner
		}
		s.notify(ctx, events.Event{Kind: events.KindRenamed, PartyID: partyID, Actor: actor, Name: name})
		return nil
	})
}

// Mine returns the party actor belongs to, members included.
func (s *Service) Mine(ctx context.Context, actor uuid.UUID) (*models.Party, error) {
	var party *models.Party
	err := s.run(ctx, "mine", func(ctx context.Context) error {
		partyID, found, err := s.store.FindPartyOf(ctx, actor)
		if err != nil {
			return err
		}
		if !found {
			return apperrors.ErrNotInParty
		}
		party, err = s.store.Get(ctx, partyID)
		if err != nil {
			return err
		}
		if party == nil {
			return apperrors.ErrNotInParty
		}
		return nil
	})
	return party, err
}

// --- Privileged and host operations ---

// FindRoleOf reports target's party and role. Requires CapabilityPartyLookup.
func (s *Service) FindRoleOf(ctx context.Context, caller Caller, target uuid.UUID) (Lookup, error) {
	var res Lookup
	err := s.run(ctx, "find_role_of", func(ctx context.Context) error {
		if !caller.Can(CapabilityPartyLookup) {
			return apperrors.ErrPermissionDenied
		}

		partyID, found, err := s.store.FindPartyOf(ctx, target)
		if err != nil || !found {
			return err
		}
		role, err := s.store.Role(ctx, partyID, target)
		if err != nil {
			return err
		}
		if role != models.RoleNone {
			res = Lookup{PartyID: partyID, Role: role}
		}
		return nil
	})
	return res, err
}

// ResolveTarget maps a player name to an online player.
func (s *Service) ResolveTarget(name string) (uuid.UUID, error) {
	id, ok := s.sessions.ResolvePlayer(name)
	if !ok || !s.sessions.IsOnline(id) {
		return uuid.Nil, apperrors.WithMetadata(apperrors.KindTargetNotFound, "player not online", map[string]string{
			"name": name,
		})
	}
	return id, nil
}

// HandleQuit is the host's session-quit hook: a player who goes offline
// leaves their party. It reports false when there was nothing to leave.
func (s *Service) HandleQuit(ctx context.Context, player uuid.UUID) (LeaveResult, bool, error) {
	res, err := s.Leave(ctx, player)
	if apperrors.KindOf(err) == apperrors.KindNotInParty {
		return LeaveResult{}, false, nil
	}
	if err != nil {
		return LeaveResult{}, false, err
	}
	return res, true, nil
}

// --- Helpers ---

func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := fn(ctx)
	s.metrics.Observe(op, err, time.Since(start))

	switch kind := apperrors.KindOf(err); {
	case err == nil:
	case kind == apperrors.KindStorageUnavailable:
		s.log.Warn("party operation failed", zap.String("op", op), zap.Error(err))
	default:
		s.log.Debug("party operation rejected", zap.String("op", op), zap.String("kind", string(kind)))
	}
	return err
}

func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	unlock, err := s.locks.acquire(ctx, key)
	if err != nil {
		return nil, apperrors.Unavailable("wait for "+key, err)
	}
	return unlock, nil
}

// lockActorParty finds actor's party, locks it and re-reads actor's role
// under the lock. The caller must call unlock on success.
func (s *Service) lockActorParty(ctx context.Context, actor uuid.UUID) (int64, models.Role, func(), error) {
	for range lockAttempts {
		partyID, found, err := s.store.FindPartyOf(ctx, actor)
		if err != nil {
			return 0, models.RoleNone, nil, err
		}
		if !found {
			return 0, models.RoleNone, nil, apperrors.ErrNotInParty
		}

		unlock, err := s.lock(ctx, partyKey(partyID))
		if err != nil {
			return 0, models.RoleNone, nil, err
		}

		role, err := s.store.Role(ctx, partyID, actor)
		if err != nil {
			unlock()
			return 0, models.RoleNone, nil, err
		}
		if role != models.RoleNone {
			return partyID, role, unlock, nil
		}
		// Moved between lookup and lock; look again.
		unlock()
	}
	return 0, models.RoleNone, nil, apperrors.ErrNotInParty
}

func (s *Service) notify(ctx context.Context, e events.Event) {
	e.At = time.Now().UTC()
	if err := s.notifier.Notify(ctx, e); err != nil {
		s.log.Warn("party event not delivered",
			zap.String("kind", string(e.Kind)),
			zap.Int64("party_id", e.PartyID),
			zap.Error(err),
		)
	}
}
