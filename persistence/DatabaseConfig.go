package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const (
	DriverMysql  = "mysql"
	DriverSqlite = "sqlite3"

	defaultMysqlArgs = "root:root@(127.0.0.1:3306)/procurement?charset=utf8mb4&parseTime=True&loc=Local&timeout=5s"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

type DatabaseConfig struct {
	DriverType   string
	DriverArgs   string
	MaxOpenConns int
}

// ParseDatabaseConfigFromEnv reads DB_DRIVER_TYPE, DB_DRIVER_ARGS and DB_MAX_OPEN_CONNS.
func ParseDatabaseConfigFromEnv() (*DatabaseConfig, error) {
	config := &DatabaseConfig{
		DriverType: strings.TrimSpace(os.Getenv("DB_DRIVER_TYPE")),
		DriverArgs: strings.TrimSpace(os.Getenv("DB_DRIVER_ARGS")),
	}
	if config.DriverType == "" {
		config.DriverType = DriverMysql
	}
	switch config.DriverType {
	case DriverMysql:
		if config.DriverArgs == "" {
			config.DriverArgs = defaultMysqlArgs
		}
	case DriverSqlite:
		if config.DriverArgs == "" {
			return nil, errors.New("DB_DRIVER_ARGS is required for " + DriverSqlite)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, config.DriverType)
	}

	if v := os.Getenv("DB_MAX_OPEN_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS '%s': %w", v, err)
		}
		config.MaxOpenConns = n
	}
	return config, nil
}

// PrepareMysqlDatabase creates the database named in driverArgs if it does not exist yet.
func PrepareMysqlDatabase(driverArgs string) error {
	cfg, err := mysql.ParseDSN(driverArgs)
	if err != nil {
		return err
	}
	databaseName := cfg.DBName
	if databaseName == "" {
		return errors.New("database name is missing in driver args")
	}
	cfg.DBName = ""

	db, err := sql.Open(DriverMysql, cfg.FormatDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec("CREATE DATABASE IF NOT EXISTS `" + databaseName + "` DEFAULT CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci")
	return err
}
