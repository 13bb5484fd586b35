package repository

import "context"

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id            SERIAL PRIMARY KEY,
        email         TEXT NOT NULL UNIQUE,
        password_hash TEXT NOT NULL,
        created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE TABLE IF NOT EXISTS emails (
        id         SERIAL PRIMARY KEY,
        user_id    INTEGER NOT NULL,
        recipient  TEXT NOT NULL,
        subject    TEXT NOT NULL,
        body       TEXT NOT NULL,
        spam_score INTEGER NOT NULL,
        delivered  BOOLEAN NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_emails_user_id ON emails (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_emails_recipient ON emails (recipient)`,
}

// MigratePostgres creates the users and emails tables if they do not exist.
func MigratePostgres(ctx context.Context, db DBTX) error {
	for _, stmt := range postgresSchema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id            INT AUTO_INCREMENT PRIMARY KEY,
        email         VARCHAR(255) NOT NULL UNIQUE,
        password_hash VARCHAR(255) NOT NULL,
        created_at    DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
    )`,
	`CREATE TABLE IF NOT EXISTS emails (
        id         INT AUTO_INCREMENT PRIMARY KEY,
        user_id    INT NOT NULL,
        recipient  VARCHAR(255) NOT NULL,
        subject    TEXT NOT NULL,
        body       TEXT NOT NULL,
        spam_score INT NOT NULL,
        delivered  BOOLEAN NOT NULL,
        created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
        INDEX idx_emails_user_id (user_id),
        INDEX idx_emails_recipient (recipient)
    )`,
}

// MigrateMySQL creates the users and emails tables.
func MigrateMySQL(ctx context.Context, db SQLDB) error {
	for _, stmt := range mysqlSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
