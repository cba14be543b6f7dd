package db

import (
	"context"

	"github.com/shandysiswandi/otpreset/internal/pkg/goerror"
)

const queryUpdatePassword = `UPDATE user_credentials SET password = $2, updated_at = now() WHERE user_id = $1`

// UpdatePassword hashes newPassword and replaces the stored credential.
func (s *DB) UpdatePassword(ctx context.Context, userID, newPassword string) (err error) {
	ctx, span := s.startSpan(ctx, "UpdatePassword")
	defer func() { s.endSpan(span, err) }()

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	tag, err := s.conn.Exec(ctx, queryUpdatePassword, userID, string(hashed))
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}
