package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/voltfield/backend/internal/infrastructure/database"
	"github.com/voltfield/backend/pkg/constants"
)

// tableDDL holds the CREATE statement for every table. Statements run in
// constants.AllTables() order so referenced tables exist before their
// referrers.
var tableDDL = map[string]string{
	constants.TableProject: `CREATE TABLE IF NOT EXISTS ` + "`projects`" + ` (
  id VARCHAR(36) NOT NULL,
  name VARCHAR(255) NOT NULL,
  status VARCHAR(32) NOT NULL DEFAULT 'Active',
  client_name VARCHAR(255) NULL,
  created_date DATETIME NOT NULL,
  last_modified_date DATETIME NOT NULL,
  PRIMARY KEY (id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	constants.TableRoom: `CREATE TABLE IF NOT EXISTS ` + "`rooms`" + ` (
  id VARCHAR(36) NOT NULL,
  project_id VARCHAR(36) NOT NULL,
  name VARCHAR(255) NOT NULL,
  normalized_name VARCHAR(255) NOT NULL,
  is_head_end TINYINT(1) NOT NULL DEFAULT 0,
  created_date DATETIME NOT NULL,
  last_modified_date DATETIME NOT NULL,
  PRIMARY KEY (id),
  UNIQUE KEY uk_rooms_project_normalized (project_id, normalized_name),
  KEY idx_rooms_project (project_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	constants.TableRoomAlias: `CREATE TABLE IF NOT EXISTS ` + "`room_aliases`" + ` (
  id VARCHAR(36) NOT NULL,
  project_id VARCHAR(36) NOT NULL,
  room_id VARCHAR(36) NOT NULL,
  alias VARCHAR(255) NOT NULL,
  normalized_alias VARCHAR(255) NOT NULL,
  created_date DATETIME NOT NULL,
  PRIMARY KEY (id),
  UNIQUE KEY uk_room_aliases_project_alias (project_id, normalized_alias),
  KEY idx_room_aliases_room (room_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	constants.TableDocument: `CREATE TABLE IF NOT EXISTS ` + "`documents`" + ` (
  id VARCHAR(36) NOT NULL,
  project_id VARCHAR(36) NOT NULL,
  external_document_id VARCHAR(128) NOT NULL,
  title VARCHAR(255) NULL,
  auto_sync TINYINT(1) NOT NULL DEFAULT 0,
  sync_schedule VARCHAR(64) NULL,
  last_synced_at DATETIME NULL,
  is_syncing TINYINT(1) NOT NULL DEFAULT 0,
  created_date DATETIME NOT NULL,
  last_modified_date DATETIME NOT NULL,
  PRIMARY KEY (id),
  UNIQUE KEY uk_documents_project_external (project_id, external_document_id),
  KEY idx_documents_project (project_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	constants.TableWireDrop: `CREATE TABLE IF NOT EXISTS ` + "`wire_drops`" + ` (
  id VARCHAR(36) NOT NULL,
  project_id VARCHAR(36) NOT NULL,
  external_shape_id VARCHAR(128) NOT NULL,
  name VARCHAR(255) NOT NULL,
  page_id VARCHAR(128) NULL,
  room_id VARCHAR(36) NULL,
  room_name VARCHAR(255) NULL,
  category VARCHAR(128) NULL,
  wire_type VARCHAR(128) NULL,
  device VARCHAR(255) NULL,
  install_note TEXT NULL,
  location VARCHAR(255) NULL,
  floor VARCHAR(64) NULL,
  color_primary VARCHAR(16) NULL,
  color_fill VARCHAR(16) NULL,
  color_line VARCHAR(16) NULL,
  synced_at DATETIME NULL,
  created_date DATETIME NOT NULL,
  created_by_id VARCHAR(36) NULL,
  last_modified_date DATETIME NOT NULL,
  last_modified_by_id VARCHAR(36) NULL,
  PRIMARY KEY (id),
  UNIQUE KEY uk_wire_drops_project_shape (project_id, external_shape_id),
  UNIQUE KEY uk_wire_drops_project_name (project_id, name),
  KEY idx_wire_drops_room (room_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	constants.TableSyncLog: `CREATE TABLE IF NOT EXISTS ` + "`sync_logs`" + ` (
  id VARCHAR(36) NOT NULL,
  project_id VARCHAR(36) NOT NULL,
  document_id VARCHAR(36) NOT NULL,
  created_count INT NOT NULL DEFAULT 0,
  updated_count INT NOT NULL DEFAULT 0,
  error_count INT NOT NULL DEFAULT 0,
  total_count INT NOT NULL DEFAULT 0,
  aliases_discovered INT NOT NULL DEFAULT 0,
  errors TEXT NULL,
  duration_ms BIGINT NOT NULL DEFAULT 0,
  triggered_by VARCHAR(32) NOT NULL,
  created_date DATETIME NOT NULL,
  PRIMARY KEY (id),
  KEY idx_sync_logs_document (document_id),
  KEY idx_sync_logs_project (project_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}

// geometryColumnDDL maps each shape geometry column to its type. These
// ship as an additive migration because installations that predate
// geometry capture run the same binary against the old table.
var geometryColumnDDL = map[string]string{
	constants.FieldPositionX: "DOUBLE NULL",
	constants.FieldPositionY: "DOUBLE NULL",
	constants.FieldWidth:     "DOUBLE NULL",
	constants.FieldHeight:    "DOUBLE NULL",
	constants.FieldRotation:  "DOUBLE NULL",
}

// InitializeSchema creates all tables and applies additive column
// migrations. Every statement is idempotent, so re-running on a
// populated database is safe.
func InitializeSchema(db *database.TiDBConnection) error {
	log.Println("🔧 Initializing schema...")

	ctx := context.Background()
	for _, table := range constants.AllTables() {
		ddl, ok := tableDDL[table]
		if !ok {
			return fmt.Errorf("no DDL registered for table %s", table)
		}
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}

	if err := ensureGeometryColumns(ctx, db); err != nil {
		return err
	}

	log.Println("✅ Schema initialized")
	return nil
}

// ensureGeometryColumns adds the shape geometry columns to wire_drops
// when they are missing. Skipped columns are logged once and adopted.
func ensureGeometryColumns(ctx context.Context, db *database.TiDBConnection) error {
	for _, col := range constants.GeometryFields() {
		exists, err := columnExists(ctx, db, constants.TableWireDrop, col)
		if err != nil {
			return fmt.Errorf("failed to check column %s.%s: %w", constants.TableWireDrop, col, err)
		}
		if exists {
			continue
		}

		ddl := fmt.Sprintf("ALTER TABLE `%s` ADD COLUMN `%s` %s",
			constants.TableWireDrop, col, geometryColumnDDL[col])
		log.Printf("🏁 Executing DDL: %s", ddl)
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to add column %s.%s: %w", constants.TableWireDrop, col, err)
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *database.TiDBConnection, table, column string) (bool, error) {
	q := fmt.Sprintf("SHOW COLUMNS FROM %s LIKE '%s'", table, column)

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	return rows.Next(), rows.Err()
}
