package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	db *gorm.DB
)

func GetDB() *gorm.DB {
	return db
}

// ConnectDatabaseWithRetry connects and sets the global DB. main() calls
// this before the HTTP server starts serving so no request sees a nil DB.
func ConnectDatabaseWithRetry(cfg *Config) {
	network := "tcp"
	address := fmt.Sprintf("%s:%s", cfg.DBHost, cfg.DBPort)

	// Cloud Run + Cloud SQL: when DB_HOST is "/cloudsql/<CONNECTION_NAME>",
	// connect using a Unix domain socket provided by Cloud SQL Auth Proxy.
	if strings.HasPrefix(cfg.DBHost, "/cloudsql/") {
		network = "unix"
		address = cfg.DBHost
	}

	dsnConfig := driver.NewConfig()
	dsnConfig.User = cfg.DBUser
	dsnConfig.Passwd = cfg.DBPassword
	dsnConfig.Net = network
	dsnConfig.Addr = address
	dsnConfig.DBName = cfg.DBName
	dsnConfig.ParseTime = true
	dsnConfig.MultiStatements = true
	// Report matched rows, not changed rows: an idempotent update that
	// changes nothing must not look like a missing record upstream.
	dsnConfig.ClientFoundRows = true
	dsn := dsnConfig.FormatDSN()

	var attempt int
	for {
		attempt++
		var err error
		db, err = gorm.Open(mysql.Open(dsn), initConfig())
		if err == nil {
			if sqlDB, derr := db.DB(); derr == nil && sqlDB != nil {
				sqlDB.SetMaxOpenConns(50)
				sqlDB.SetMaxIdleConns(25)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
				sqlDB.SetConnMaxIdleTime(time.Minute)
			}
			log.Printf("connected to database (attempt=%d)", attempt)
			return
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: false,
		},
	}
}
