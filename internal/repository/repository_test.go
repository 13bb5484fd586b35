package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailhub/internal/model"
)

var emailColumns = []string{"id", "user_id", "recipient", "subject", "body", "spam_score", "delivered", "created_at"}

func TestEmailRepository_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO emails").
		WithArgs(1, "bob@example.com", "Hi", "Body", 3, true, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(42))

	e := &model.EmailRecord{UserID: 1, Recipient: "bob@example.com", Subject: "Hi", Body: "Body", SpamScore: 3, Delivered: true}
	require.NoError(t, NewEmailRepository(mock).Insert(context.Background(), e))

	assert.Equal(t, 42, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailRepository_ListForUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	newer := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	mock.ExpectQuery(`WHERE user_id = \$1 OR recipient = \$2\s+ORDER BY created_at DESC`).
		WithArgs(1, "alice@example.com").
		WillReturnRows(pgxmock.NewRows(emailColumns).
			AddRow(2, 5, "alice@example.com", "To you", "b", 0, true, newer).
			AddRow(1, 1, "bob@example.com", "From you", "b", 2, false, older))

	emails, err := NewEmailRepository(mock).ListForUser(context.Background(), 1, "alice@example.com")
	require.NoError(t, err)

	require.Len(t, emails, 2)
	assert.Equal(t, 2, emails[0].ID)
	assert.Equal(t, "To you", emails[0].Subject)
	assert.Equal(t, newer, emails[0].CreatedAt)
	assert.Equal(t, 2, emails[1].SpamScore)
	assert.False(t, emails[1].Delivered)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailRepository_ListForUserEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, user_id").
		WithArgs(9, "nobody@example.com").
		WillReturnRows(pgxmock.NewRows(emailColumns))

	emails, err := NewEmailRepository(mock).ListForUser(context.Background(), 9, "nobody@example.com")
	require.NoError(t, err)
	assert.NotNil(t, emails)
	assert.Empty(t, emails)
}

func TestEmailRepository_ListForUserError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, user_id").
		WithArgs(1, "a@example.com").
		WillReturnError(errors.New("connection reset"))

	_, err = NewEmailRepository(mock).ListForUser(context.Background(), 1, "a@example.com")
	assert.EqualError(t, err, "connection reset")
}

func TestUserRepository_FindByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM users").
		WithArgs("a@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
			AddRow(3, "a@example.com", "hash", created))
	mock.ExpectQuery("FROM users").
		WithArgs("missing@example.com").
		WillReturnError(pgx.ErrNoRows)

	repo := NewUserRepository(mock)
	u, err := repo.FindByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, u.ID)
	assert.Equal(t, "hash", u.PasswordHash)

	_, err = repo.FindByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateUserDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("a@example.com", "hash", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err = NewUserRepository(mock).CreateUser(context.Background(), &model.User{Email: "a@example.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestMigratePostgres(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS emails").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_emails_user_id").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_emails_recipient").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, MigratePostgres(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLEmailRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO emails").
		WithArgs(1, "bob@example.com", "Hi", "Body", 0, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(`WHERE user_id = \? OR recipient = \? ORDER BY created_at DESC`).
		WithArgs(1, "a@example.com").
		WillReturnRows(sqlmock.NewRows(emailColumns).
			AddRow(7, 1, "bob@example.com", "Hi", "Body", 0, true, created))

	repo := NewMySQLEmailRepository(db)
	e := &model.EmailRecord{UserID: 1, Recipient: "bob@example.com", Subject: "Hi", Body: "Body", Delivered: true}
	require.NoError(t, repo.Insert(context.Background(), e))
	assert.Equal(t, 7, e.ID)

	emails, err := repo.ListForUser(context.Background(), 1, "a@example.com")
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, "bob@example.com", emails[0].Recipient)
	assert.Equal(t, created, emails[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUserRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO users").
		WithArgs("a@example.com", "hash", sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectQuery(`FROM users WHERE email = \?`).
		WithArgs("missing@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}))

	repo := NewMySQLUserRepository(db)
	err = repo.CreateUser(context.Background(), &model.User{Email: "a@example.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = repo.FindByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateMySQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS emails").WillReturnError(errors.New("access denied"))

	assert.EqualError(t, MigrateMySQL(context.Background(), db), "access denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}
