package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"userpanel/internal/model"
	"userpanel/internal/store"
	"userpanel/internal/store/postgres/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	pkgerrors "github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	// Ping to fail fast.
	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate applies the embedded goose migrations over a database/sql view of the pool.
func (s *Store) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return pkgerrors.Wrap(err, "goose dialect")
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return pkgerrors.Wrap(err, "apply migrations")
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	var n int
	return s.pool.QueryRow(ctx, `select count(*) from (select 1 from public.users limit 1) t`).Scan(&n)
}

func (s *Store) CreateLoginAttempt(ctx context.Context, a model.LoginAttempt) (model.LoginAttempt, error) {
	ts := a.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	var out model.LoginAttempt
	err := s.pool.QueryRow(ctx, `
		insert into public.login_attempts (username, ip_address, device_token, success, failure_reason, timestamp)
		values ($1, nullif($2, ''), nullif($3, ''), $4, $5, $6)
		returning id::text, username, coalesce(ip_address, ''), coalesce(device_token, ''), success, failure_reason, timestamp
	`, a.Username, a.IPAddress, a.DeviceToken, a.Success, a.FailureReason, ts).Scan(
		&out.ID,
		&out.Username,
		&out.IPAddress,
		&out.DeviceToken,
		&out.Success,
		&out.FailureReason,
		&out.Timestamp,
	)
	if err != nil {
		return model.LoginAttempt{}, mapPgErr(err)
	}
	return out, nil
}

func (s *Store) ListLoginAttempts(ctx context.Context, f store.LoginAttemptFilter) ([]model.LoginAttempt, error) {
	var since *time.Time
	if !f.Since.IsZero() {
		since = &f.Since
	}

	rows, err := s.pool.Query(ctx, `
		select id::text, username, coalesce(ip_address, ''), coalesce(device_token, ''), success, failure_reason, timestamp
		from public.login_attempts
		where ($1 = '' or lower(username) = lower($1))
		  and ($2::timestamptz is null or timestamp >= $2)
		order by timestamp desc
		limit $3
	`, f.Username, since, limitParam(f.Limit))
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := []model.LoginAttempt{}
	for rows.Next() {
		var a model.LoginAttempt
		if err := rows.Scan(&a.ID, &a.Username, &a.IPAddress, &a.DeviceToken, &a.Success, &a.FailureReason, &a.Timestamp); err != nil {
			return nil, mapPgErr(err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CreateDevice(ctx context.Context, d model.AuthorizedDevice) (model.AuthorizedDevice, error) {
	ts := d.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	var out model.AuthorizedDevice
	err := s.pool.QueryRow(ctx, `
		insert into public.authorized_devices (username, ip_address, device_name, user_agent, timestamp)
		values ($1, nullif($2, ''), nullif($3, ''), nullif($4, ''), $5)
		returning id::text, username, coalesce(ip_address, ''), coalesce(device_name, ''), coalesce(user_agent, ''), timestamp
	`, d.Username, d.IPAddress, d.DeviceName, d.UserAgent, ts).Scan(
		&out.ID, &out.Username, &out.IPAddress, &out.DeviceName, &out.UserAgent, &out.Timestamp,
	)
	if err != nil {
		return model.AuthorizedDevice{}, mapPgErr(err)
	}
	return out, nil
}

func (s *Store) ListDevices(ctx context.Context, f store.DeviceFilter) ([]model.AuthorizedDevice, error) {
	rows, err := s.pool.Query(ctx, `
		select id::text, username, coalesce(ip_address, ''), coalesce(device_name, ''), coalesce(user_agent, ''), timestamp
		from public.authorized_devices
		where ($1 = '' or lower(username) = lower($1))
		order by timestamp desc
	`, f.Username)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := []model.AuthorizedDevice{}
	for rows.Next() {
		var d model.AuthorizedDevice
		if err := rows.Scan(&d.ID, &d.Username, &d.IPAddress, &d.DeviceName, &d.UserAgent, &d.Timestamp); err != nil {
			return nil, mapPgErr(err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) DeleteDevice(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `delete from public.authorized_devices where id = $1::uuid`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const alertColumns = `id::text, alert_type, severity, coalesce(ip_address, ''), coalesce(username, ''), coalesce(message, ''), details, is_read, created_at, read_at`

func scanAlert(row pgx.Row) (model.SecurityAlert, error) {
	var a model.SecurityAlert
	var details []byte
	if err := row.Scan(&a.ID, &a.Type, &a.Severity, &a.IPAddress, &a.Username, &a.Message, &details, &a.IsRead, &a.CreatedAt, &a.ReadAt); err != nil {
		return model.SecurityAlert{}, err
	}
	if len(details) > 0 {
		_ = json.Unmarshal(details, &a.Details)
	}
	return a, nil
}

func (s *Store) CreateAlert(ctx context.Context, a model.SecurityAlert) (model.SecurityAlert, error) {
	if !a.Type.Valid() {
		return model.SecurityAlert{}, errors.New("alert_type_invalid")
	}
	severity := a.Severity
	if severity == "" {
		severity = model.SeverityMedium
	}

	var details []byte
	if a.Details != nil {
		b, err := json.Marshal(a.Details)
		if err != nil {
			return model.SecurityAlert{}, fmt.Errorf("encode details: %w", err)
		}
		details = b
	}

	out, err := scanAlert(s.pool.QueryRow(ctx, `
		insert into public.security_alerts (alert_type, severity, ip_address, username, message, details)
		values ($1, $2, nullif($3, ''), nullif($4, ''), nullif($5, ''), $6::jsonb)
		returning `+alertColumns,
		string(a.Type), string(severity), a.IPAddress, a.Username, a.Message, details))
	if err != nil {
		return model.SecurityAlert{}, mapPgErr(err)
	}
	return out, nil
}

func (s *Store) ListAlerts(ctx context.Context, f store.AlertFilter) ([]model.SecurityAlert, error) {
	rows, err := s.pool.Query(ctx, `
		select `+alertColumns+`
		from public.security_alerts
		where (not $1 or is_read = false)
		order by created_at desc
		limit $2
	`, f.UnreadOnly, limitParam(f.Limit))
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := []model.SecurityAlert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, mapPgErr(err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) MarkAlertRead(ctx context.Context, id string) (model.SecurityAlert, error) {
	out, err := scanAlert(s.pool.QueryRow(ctx, `
		update public.security_alerts
		set is_read = true, read_at = now()
		where id = $1::uuid
		returning `+alertColumns, id))
	if err != nil {
		return model.SecurityAlert{}, mapPgErr(err)
	}
	return out, nil
}

func (s *Store) DeleteAlert(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `delete from public.security_alerts where id = $1::uuid`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// limitParam maps a non-positive limit to NULL, which postgres treats as LIMIT ALL.
func limitParam(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

func mapPgErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	// Unique violation, etc.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return store.ErrConflict
		case "23503", "22P02":
			return store.ErrNotFound
		default:
			return fmt.Errorf("db_error %s: %s", pgErr.Code, pgErr.Message)
		}
	}
	return err
}
