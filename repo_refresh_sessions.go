package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshSessions stores the single live refresh token per user.
type RefreshSessions interface {
	repository.Repository[*RefreshSession]

	Replace(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*RefreshSession, error)
	ReplaceTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string, expiresAt time.Time) (*RefreshSession, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*RefreshSession, error)
	GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*RefreshSession, error)
	Match(ctx context.Context, userID uuid.UUID, token string) (bool, error)
	MatchTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) (bool, error)
	Revoke(ctx context.Context, userID uuid.UUID) error
	RevokeTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type refreshSessions struct {
	repository.Repository[*RefreshSession]
	db *bun.DB
}

var _ RefreshSessions = (*refreshSessions)(nil)

func NewRefreshSessionsRepository(db *bun.DB) RefreshSessions {
	repo := repository.NewRepository[*RefreshSession](db, repository.ModelHandlers[*RefreshSession]{
		NewRecord: func() *RefreshSession { return &RefreshSession{} },
		GetID: func(r *RefreshSession) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *RefreshSession, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &refreshSessions{
		Repository: repo,
		db:         db,
	}
}

func (r *refreshSessions) Replace(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*RefreshSession, error) {
	return r.ReplaceTx(ctx, r.db, userID, token, expiresAt)
}

// ReplaceTx deletes any live session for the user and inserts the new one.
// The unique index on user_id backstops a lost race between two logins.
func (r *refreshSessions) ReplaceTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string, expiresAt time.Time) (*RefreshSession, error) {
	if _, err := tx.NewDelete().
		Model((*RefreshSession)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx); err != nil {
		return nil, err
	}

	record := &RefreshSession{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: &expiresAt,
	}

	return r.Repository.CreateTx(ctx, tx, record)
}

func (r *refreshSessions) GetByUserID(ctx context.Context, userID uuid.UUID) (*RefreshSession, error) {
	return r.GetByUserIDTx(ctx, r.db, userID)
}

func (r *refreshSessions) GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*RefreshSession, error) {
	record := &RefreshSession{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
				"user_id": userID.String(),
			})
		}
		return nil, err
	}

	return record, nil
}

func (r *refreshSessions) Match(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	return r.MatchTx(ctx, r.db, userID, token)
}

// MatchTx reports whether the presented token is the user's live refresh
// token. A single SELECT keeps the check atomic with respect to Replace.
func (r *refreshSessions) MatchTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) (bool, error) {
	count, err := tx.NewSelect().
		Model((*RefreshSession)(nil)).
		Where("user_id = ?", userID).
		Where("token = ?", token).
		Count(ctx)

	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *refreshSessions) Revoke(ctx context.Context, userID uuid.UUID) error {
	return r.RevokeTx(ctx, r.db, userID)
}

func (r *refreshSessions) RevokeTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*RefreshSession)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)

	return err
}
