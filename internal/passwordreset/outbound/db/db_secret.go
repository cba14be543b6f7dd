package db

import (
	"context"

	"github.com/shandysiswandi/otpreset/internal/pkg/goerror"
)

const (
	queryGetSecret = `SELECT COALESCE(reset_secret, '') FROM password_reset_profiles WHERE user_id = $1`

	// Both CTE statements see the same snapshot, so "found"/"current" describe
	// the row as it was before the conditional update.
	queryCreateSecret = `
WITH upd AS (
	UPDATE password_reset_profiles SET reset_secret = $2, updated_at = now()
	WHERE user_id = $1 AND reset_secret IS NULL
	RETURNING 1
)
SELECT EXISTS (SELECT 1 FROM upd),
       EXISTS (SELECT 1 FROM password_reset_profiles WHERE user_id = $1)`

	queryClearSecret = `
WITH upd AS (
	UPDATE password_reset_profiles SET reset_secret = NULL, updated_at = now()
	WHERE user_id = $1 AND reset_secret = $2
	RETURNING 1
)
SELECT EXISTS (SELECT 1 FROM upd),
       (SELECT reset_secret FROM password_reset_profiles WHERE user_id = $1)`
)

func (s *DB) GetSecret(ctx context.Context, userID string) (_ string, err error) {
	ctx, span := s.startSpan(ctx, "GetSecret")
	defer func() { s.endSpan(span, err) }()

	var sealed string
	if err := s.conn.QueryRow(ctx, queryGetSecret, userID).Scan(&sealed); err != nil {
		return "", s.mapError(err)
	}

	return sealed, nil
}

func (s *DB) CreateSecret(ctx context.Context, userID, sealed string) (err error) {
	ctx, span := s.startSpan(ctx, "CreateSecret")
	defer func() { s.endSpan(span, err) }()

	var written, found bool
	if err := s.conn.QueryRow(ctx, queryCreateSecret, userID, sealed).Scan(&written, &found); err != nil {
		return s.mapError(err)
	}

	switch {
	case written:
		return nil
	case !found:
		return goerror.ErrNotFound
	default:
		return goerror.ErrConflict
	}
}

func (s *DB) ClearSecret(ctx context.Context, userID, sealed string) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "ClearSecret")
	defer func() { s.endSpan(span, err) }()

	var (
		cleared bool
		current *string
	)
	if err := s.conn.QueryRow(ctx, queryClearSecret, userID, sealed).Scan(&cleared, &current); err != nil {
		return false, s.mapError(err)
	}

	switch {
	case cleared:
		return true, nil
	case current == nil:
		return false, nil
	default:
		return false, goerror.ErrConflict
	}
}
