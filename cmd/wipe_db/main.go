package main

import (
	"crypto/tls"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/go-sql-driver/mysql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"github.com/voltfield/backend/pkg/constants"
)

func main() {
	// Load .env
	// Try multiple paths
	paths := []string{"../.env", ".env", "../../.env"}
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			log.Printf("Loaded .env from %s", p)
			break
		}
	}

	// Build DSN just like tidb.go
	host := os.Getenv("TIDB_HOST")
	port := os.Getenv("TIDB_PORT")
	user := os.Getenv("TIDB_USER")
	password := os.Getenv("TIDB_PASSWORD")
	database := os.Getenv("TIDB_DATABASE")

	if port == "" {
		port = "4000"
	}

	if database == "" {
		database = "voltfield"
	}

	// Register TLS config for TiDB Cloud
	mysql.RegisterTLSConfig("tidb", &tls.Config{
		MinVersion: tls.VersionTLS12,
	})

	tlsParam := "&tls=tidb"
	if host == "127.0.0.1" || host == "localhost" {
		tlsParam = ""
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local%s",
		user, password, host, port, database, tlsParam)

	if host == "" || user == "" {
		log.Println("Warning: TIDB_HOST or TIDB_USER not set, connection might fail")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping db: %v", err)
	}

	log.Println("⚠️  Wiping database...")

	// Drop in reverse dependency order so child tables go before their parents
	tables := constants.AllTables()
	for i := len(tables) - 1; i >= 0; i-- {
		table := tables[i]
		if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS `%s`", table)); err != nil {
			log.Printf("Failed to drop table %s: %v", table, err)
		} else {
			log.Printf("Dropped table: %s", table)
		}
	}

	log.Println("✅ Database wiped successfully.")
}
