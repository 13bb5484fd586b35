package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"emailhub/pkg/config"
)

// MySQLDSN builds a go-sql-driver DSN from cfg. parseTime is enabled so DATETIME
// columns scan into time.Time.
func MySQLDSN(cfg config.DBConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Name
	mc.ParseTime = true
	return mc.FormatDSN()
}

// NewMySQLConnection opens and pings a MySQL handle. The caller owns it and must Close it.
func NewMySQLConnection(cfg config.DBConfig, logger *zap.Logger) (*sql.DB, error) {
	logger.Info("Initializing MySQL connection pool",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("db", cfg.Name),
	)

	conn, err := sql.Open("mysql", MySQLDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxIdleTime(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		logger.Error("MySQL ping failed", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	logger.Info("MySQL connection established successfully")
	return conn, nil
}
