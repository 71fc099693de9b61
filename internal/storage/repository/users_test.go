package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/threadforge/internal/models"
	"github.com/magabrotheeeer/threadforge/internal/storage"
)

var columns = []string{"uid", "email", "password_hash", "role", "status", "created_at", "updated_at",
	"login_count", "failed_logins", "email_verified", "metadata"}

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Storage{DB: db}, mock
}

func testUser() models.User {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return models.User{
		UUID:         "2c1f9a1e-0000-4000-8000-000000000001",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$hash",
		Role:         models.RoleUser,
		Status:       models.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
		Metadata:     map[string]string{"source": "web"},
	}
}

func userRow(u models.User) *sqlmock.Rows {
	return sqlmock.NewRows(columns).AddRow(u.UUID, u.Email, u.PasswordHash, string(u.Role), string(u.Status),
		u.CreatedAt, u.UpdatedAt, u.LoginCount, u.FailedLogins, u.EmailVerified, []byte(`{"source":"web"}`))
}

func TestStorage_CreateUser(t *testing.T) {
	u := testUser()

	tests := []struct {
		name    string
		setup   func(m sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "created",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
					WithArgs(u.UUID, u.Email, u.PasswordHash, "user", "active", u.CreatedAt, u.UpdatedAt,
						0, 0, false, []byte(`{"source":"web"}`)).
					WillReturnRows(userRow(u))
			},
		},
		{
			name: "duplicate email",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr: storage.ErrUserExists,
		},
		{
			name: "connection error",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)
			tt.setup(mock)

			got, err := s.CreateUser(context.Background(), u)
			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
				assert.Equal(t, u, got)
			case errors.Is(tt.wantErr, storage.ErrUserExists):
				assert.ErrorIs(t, err, storage.ErrUserExists)
			default:
				require.Error(t, err)
				assert.NotErrorIs(t, err, storage.ErrUserExists)
				assert.Contains(t, err.Error(), "storage.CreateUser")
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_UserByEmail(t *testing.T) {
	u := testUser()

	t.Run("found", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE email = $1")).
			WithArgs("alice@example.com").
			WillReturnRows(userRow(u))

		got, err := s.UserByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, u, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE email = $1")).
			WithArgs("bob@example.com").
			WillReturnError(sql.ErrNoRows)

		_, err := s.UserByEmail(context.Background(), "bob@example.com")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
	})
}

func TestStorage_UserByID(t *testing.T) {
	u := testUser()

	s, mock := newMockStorage(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE uid = $1")).
		WithArgs(u.UUID).
		WillReturnRows(userRow(u))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE uid = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))

	got, err := s.UserByID(context.Background(), u.UUID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = s.UserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_UpdateUser(t *testing.T) {
	u := testUser()
	u.LoginCount = 3

	s, mock := newMockStorage(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WithArgs("user", "active", u.UpdatedAt, 3, 0, false, []byte(`{"source":"web"}`), u.UUID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.UpdateUser(context.Background(), u))
	assert.ErrorIs(t, s.UpdateUser(context.Background(), u), storage.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_IncrementFailedLogins(t *testing.T) {
	s, mock := newMockStorage(t)
	mock.ExpectExec(regexp.QuoteMeta("SET failed_logins = failed_logins + 1")).
		WithArgs("alice@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET failed_logins = failed_logins + 1")).
		WithArgs("ghost@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.IncrementFailedLogins(context.Background(), "alice@example.com"))
	assert.ErrorIs(t, s.IncrementFailedLogins(context.Background(), "ghost@example.com"), storage.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckDatabaseReady(t *testing.T) {
	query := regexp.QuoteMeta("SELECT EXISTS (")

	t.Run("table present", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		require.NoError(t, CheckDatabaseReady(context.Background(), s))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("table missing", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		err := CheckDatabaseReady(context.Background(), s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "users missing")
	})

	t.Run("query error", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(query).WillReturnError(errors.New("conn reset"))
		assert.Error(t, CheckDatabaseReady(context.Background(), s))
	})
}
