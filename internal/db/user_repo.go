package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"craftfolio/internal/types"
)

// UserRepository provides data access for the users table, including the
// embedded subscription state.
//
// Key invariants:
//   - Plan-state writes are compare-and-swap on plan_version. A lost race
//     surfaces as ErrCodeConflictConcurrent so the caller can reload and
//     re-decide; no partial write is ever visible to concurrent readers.
//   - current_plan and queued_plan are stored as JSONB; SQL NULL means
//     "absent" (free tier / nothing queued).
type UserRepository struct {
	db     DBTX
	logger *slog.Logger
}

// NewUserRepository creates a new UserRepository backed by the given
// database connection (pool or transaction).
func NewUserRepository(db DBTX, logger *slog.Logger) *UserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserRepository{db: db, logger: logger}
}

// userColumns defines the standard set of columns selected for user queries.
// Used consistently across all query methods to avoid column drift.
const userColumns = `u.id, u.email, u.username, u.name,
	u.short_videos, u.long_videos, u.graphic_images,
	u.current_plan, u.queued_plan, u.plan_version,
	u.created_at, u.updated_at`

// scanUser scans a single user row into a types.User struct.
// The columns must match the order defined in userColumns.
func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	var current *types.ActivePlan
	var queued *types.QueuedPlan
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.Name,
		&u.ShortVideos,
		&u.LongVideos,
		&u.GraphicImages,
		&current,
		&queued,
		&u.Subscription.Version,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Subscription.Current = current
	u.Subscription.Queued = queued
	return &u, nil
}

// GetByID returns the user for the given ID.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*types.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.id = $1`,
		userID,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load user", err)
	}
	return u, nil
}

// UpdatePlanState persists the user's subscription sub-record atomically.
//
// The WHERE clause enforces the compare-and-swap: the write applies only if
// plan_version still equals the version the caller read. Zero rows affected
// means a concurrent writer won; the caller must reload and re-decide.
func (r *UserRepository) UpdatePlanState(ctx context.Context, userID string, state types.SubscriptionState) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users
		 SET current_plan = $1,
		     queued_plan = $2,
		     plan_version = plan_version + 1,
		     updated_at = NOW()
		 WHERE id = $3
		   AND plan_version = $4`,
		state.Current,
		state.Queued,
		userID,
		state.Version,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update plan state", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Info("plan state write lost compare-and-swap",
			slog.String("user_id", userID),
			slog.Int64("seen_version", state.Version),
		)
		return types.NewAppError(
			types.ErrCodeConflictConcurrent,
			"plan state was modified concurrently",
			nil,
		)
	}

	return nil
}

// UpdatePlanStateAndMedia persists the subscription sub-record together with
// truncated media lists in a single statement. Used by the expiry sweeper so
// the downgrade and the quota truncation are one atomic write.
func (r *UserRepository) UpdatePlanStateAndMedia(
	ctx context.Context,
	userID string,
	state types.SubscriptionState,
	shortVideos, longVideos, graphicImages types.StringList,
) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users
		 SET current_plan = $1,
		     queued_plan = $2,
		     short_videos = $3,
		     long_videos = $4,
		     graphic_images = $5,
		     plan_version = plan_version + 1,
		     updated_at = NOW()
		 WHERE id = $6
		   AND plan_version = $7`,
		state.Current,
		state.Queued,
		shortVideos,
		longVideos,
		graphicImages,
		userID,
		state.Version,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update plan state and media", err)
	}

	if tag.RowsAffected() == 0 {
		return types.NewAppError(
			types.ErrCodeConflictConcurrent,
			"plan state was modified concurrently",
			nil,
		)
	}

	return nil
}
