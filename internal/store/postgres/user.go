package postgres

import (
	"context"
	"strings"

	"userpanel/internal/model"
	"userpanel/internal/store"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id::text, name, username, password, is_admin, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `
		select `+userColumns+`
		from public.users
		order by created_at desc
	`)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapPgErr(err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `
		select `+userColumns+`
		from public.users
		where id = $1::uuid
	`, id))
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `
		select `+userColumns+`
		from public.users
		where lower(username) = lower($1)
	`, username))
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	out, err := scanUser(s.pool.QueryRow(ctx, `
		insert into public.users (name, username, password, is_admin, is_active)
		values ($1, $2, $3, $4, $5)
		returning `+userColumns,
		u.Name, strings.ToLower(strings.TrimSpace(u.Username)), u.PasswordHash, u.IsAdmin, u.IsActive))
	if err != nil {
		return model.User{}, mapPgErr(err)
	}
	return out, nil
}

// UpdateUser writes only the non-nil patch fields; a nil column parameter keeps the stored value.
func (s *Store) UpdateUser(ctx context.Context, id string, p model.UserPatch) (model.User, error) {
	var username *string
	if p.Username != nil {
		v := strings.ToLower(strings.TrimSpace(*p.Username))
		username = &v
	}

	out, err := scanUser(s.pool.QueryRow(ctx, `
		update public.users
		set name = coalesce($2, name),
		    username = coalesce($3, username),
		    password = coalesce($4, password),
		    is_admin = coalesce($5, is_admin),
		    is_active = coalesce($6, is_active)
		where id = $1::uuid
		returning `+userColumns,
		id, p.Name, username, p.PasswordHash, p.IsAdmin, p.IsActive))
	if err != nil {
		return model.User{}, mapPgErr(err)
	}
	return out, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `delete from public.users where id = $1::uuid`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
