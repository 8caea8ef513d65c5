package testinfra

import (
	"context"
	"os"
	"procurement/persistence"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type TestDatabase struct {
	TestDatabaseName string
	DS               *persistence.DataSourceManager
}

// StartTestDatabase creates a uniquely named database: on the MySQL server TEST_MYSQL_SERVICE
// (e.g. root:root@(127.0.0.1:3306)) when set, otherwise an in-memory SQLite database.
func StartTestDatabase(baseName string) *TestDatabase {
	databaseName := baseName + "_test_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	var dbConfig *persistence.DatabaseConfig
	if mysqlSvc := os.Getenv("TEST_MYSQL_SERVICE"); mysqlSvc != "" {
		dbConfig = &persistence.DatabaseConfig{
			DriverType: persistence.DriverMysql,
			DriverArgs: mysqlSvc + "/" + databaseName + "?charset=utf8mb4&parseTime=True&loc=Local&timeout=5s",
		}
		// create database (no conflict)
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			logrus.Fatalf("failed to prepare database %v\n", err)
		}
	} else {
		// shared in-memory database, discarded with its last connection
		dbConfig = &persistence.DatabaseConfig{
			DriverType:   persistence.DriverSqlite,
			DriverArgs:   "file:" + databaseName + "?mode=memory&cache=shared",
			MaxOpenConns: 1,
		}
	}

	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		defer ds.Stop()
		logrus.Fatalf("database connection failed %v\n", err)
	}

	return &TestDatabase{TestDatabaseName: databaseName, DS: ds}
}

func StopTestDatabase(testDatabase *TestDatabase) {
	if testDatabase == nil || testDatabase.DS == nil {
		return
	}
	if testDatabase.DS.DatabaseConfig.DriverType == persistence.DriverMysql {
		if db := testDatabase.DS.GormDB(context.Background()); db != nil {
			if err := db.Exec("DROP DATABASE " + testDatabase.TestDatabaseName).Error; err != nil {
				logrus.Warn("failed to drop test database: " + testDatabase.TestDatabaseName)
			} else {
				logrus.Info("test database " + testDatabase.TestDatabaseName + " dropped")
			}
		}
	}
	testDatabase.DS.Stop()
}
