package db

import (
	"context"

	"github.com/shandysiswandi/otpreset/internal/passwordreset/entity"
)

const queryFindUserByEmail = `SELECT id, email FROM users WHERE lower(email) = lower($1)`

func (s *DB) FindUserByEmail(ctx context.Context, email string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "FindUserByEmail")
	defer func() { s.endSpan(span, err) }()

	var u entity.User
	if err := s.conn.QueryRow(ctx, queryFindUserByEmail, email).Scan(&u.ID, &u.Email); err != nil {
		return nil, s.mapError(err)
	}

	return &u, nil
}
