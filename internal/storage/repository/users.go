package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/magabrotheeeer/threadforge/internal/models"
	"github.com/magabrotheeeer/threadforge/internal/storage"
)

const userColumns = `uid, email, password_hash, role, status, created_at, updated_at,
			      login_count, failed_logins, email_verified, metadata`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	var metadata []byte
	if err := row.Scan(&u.UUID, &u.Email, &u.PasswordHash, &u.Role, &u.Status,
		&u.CreatedAt, &u.UpdatedAt, &u.LoginCount, &u.FailedLogins, &u.EmailVerified,
		&metadata); err != nil {
		return models.User{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &u.Metadata); err != nil {
			return models.User{}, err
		}
	}
	return u, nil
}

func marshalMetadata(m map[string]string) ([]byte, error) {
	if m == nil {
		m = map[string]string{}
	}
	return json.Marshal(m)
}

// CreateUser сохраняет нового пользователя. Уникальность email обеспечивает индекс,
// поэтому проверка и запись атомарны в пределах базы.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const op = "storage.CreateUser"

	metadata, err := marshalMetadata(user.Metadata)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO users (uid, email, password_hash, role, status, created_at, updated_at,
			      login_count, failed_logins, email_verified, metadata)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			  RETURNING ` + userColumns
	row := s.DB.QueryRowContext(ctx, query,
		user.UUID, user.Email, user.PasswordHash, string(user.Role), string(user.Status), user.CreatedAt,
		user.UpdatedAt, user.LoginCount, user.FailedLogins, user.EmailVerified, metadata)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// UserByEmail возвращает пользователя по нормализованному email.
func (s *Storage) UserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.UserByEmail"
	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE email = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UserByID возвращает пользователя по его UID.
func (s *Storage) UserByID(ctx context.Context, userUID string) (models.User, error) {
	const op = "storage.UserByID"
	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateUser сохраняет изменяемые поля пользователя.
func (s *Storage) UpdateUser(ctx context.Context, user models.User) error {
	const op = "storage.UpdateUser"

	metadata, err := marshalMetadata(user.Metadata)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE users
			  SET role = $1, status = $2, updated_at = $3, login_count = $4,
			      failed_logins = $5, email_verified = $6, metadata = $7
			  WHERE uid = $8`
	res, err := s.DB.ExecContext(ctx, query, string(user.Role), string(user.Status), user.UpdatedAt,
		user.LoginCount, user.FailedLogins, user.EmailVerified, metadata, user.UUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOneRow(op, res)
}

// IncrementFailedLogins атомарно увеличивает счётчик неудачных входов.
func (s *Storage) IncrementFailedLogins(ctx context.Context, email string) error {
	const op = "storage.IncrementFailedLogins"
	query := `UPDATE users
			  SET failed_logins = failed_logins + 1, updated_at = now()
			  WHERE email = $1`
	res, err := s.DB.ExecContext(ctx, query, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOneRow(op, res)
}

func expectOneRow(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}
