package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Insert(ctx context.Context, email string, hash []byte, firstName, lastName string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	GetByID(ctx context.Context, id string) (*Profile, error)
	Update(ctx context.Context, id string, upd ProfileUpdate) (*Profile, error)
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const profileColumns = `id, email, password_hash, COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(avatar_url, ''), role, created_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.FirstName, &p.LastName, &p.AvatarURL, &p.Role, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) Insert(ctx context.Context, email string, hash []byte, firstName, lastName string) (*Profile, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO profiles (email, password_hash, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		RETURNING `+profileColumns,
		email, hash, firstName, lastName,
	)
	p, err := scanProfile(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return p, nil
}

func (r *PgRepository) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile by email: %w", err)
	}
	return p, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id string) (*Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (r *PgRepository) Update(ctx context.Context, id string, upd ProfileUpdate) (*Profile, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE profiles
		SET first_name = COALESCE($2, first_name),
		    last_name  = COALESCE($3, last_name),
		    avatar_url = COALESCE($4, avatar_url)
		WHERE id = $1
		RETURNING `+profileColumns,
		id, upd.FirstName, upd.LastName, upd.AvatarURL,
	)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}
