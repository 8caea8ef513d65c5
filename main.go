package main

import (
	"context"
	"os"
	"procurement/common"
	"procurement/domain/purchase"
	"procurement/domain/stage"
	"procurement/event"
	"procurement/infra/tracing"
	"procurement/persistence"
	"procurement/servehttp"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Fatalf("load .env failed %v", err)
	}
	logrus.Info("service start")

	closer, err := tracing.InitGlobalTracer(common.ServiceName())
	if err != nil {
		logrus.Fatalf("init tracer failed %v", err)
	}
	defer closer.Close()

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		logrus.Fatalf("parse database config failed %v", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == persistence.DriverMysql {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			logrus.Fatalf("failed to prepare database %v", err)
		}
	}

	// connect database
	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		logrus.Fatalf("database connection failed %v", err)
	}
	defer ds.Stop()
	persistence.ActiveDataSourceManager = ds

	// database migration (race condition)
	err = ds.GormDB(context.Background()).AutoMigrate(&purchase.Purchase{}, &purchase.Cost{},
		&stage.Stage{}, &stage.StageType{}, &event.EventRecord{}).Error
	if err != nil {
		logrus.Fatalf("database migration failed %v", err)
	}

	event.EventHandlers = append(event.EventHandlers, event.LogEventHandler)

	servehttp.StartHTTPServer(servehttp.NewEngine(), os.Getenv("LISTEN_ADDR"))
}
