package db

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	embeddedmigrations "github.com/terraincognita07/fittrack/migrations"
	"gorm.io/gorm"
)

var (
	migrationFileName  = regexp.MustCompile(`^(\d+)_[a-z0-9_]+\.sql$`)
	addColumnStatement = regexp.MustCompile(`(?i)^ALTER\s+TABLE\s+("?[\w]+"?)\s+ADD\s+COLUMN\s+("?[\w]+"?)`)

	ErrMigrationModified = errors.New("applied migration was modified")
)

type migrationFile struct {
	Version  string
	Order    int
	Name     string
	Checksum string
	SQL      string
}

// schemaMigration is one row of the bookkeeping table. Checksum is empty for rows
// written before checksums were recorded; those are filled on the next boot.
type schemaMigration struct {
	Version   string    `gorm:"column:version;primaryKey"`
	Name      string    `gorm:"column:name"`
	Checksum  string    `gorm:"column:checksum"`
	AppliedAt time.Time `gorm:"column:applied_at"`
}

func (schemaMigration) TableName() string {
	return "schema_migrations"
}

type migrator struct {
	database *gorm.DB
	dialect  string
}

func applyEmbeddedMigrations(database *gorm.DB, dialect string) error {
	runner := migrator{database: database, dialect: dialect}
	if err := runner.ensureBookkeeping(); err != nil {
		return err
	}

	files, err := loadMigrationFiles(dialect)
	if err != nil {
		return err
	}
	applied, err := runner.applied()
	if err != nil {
		return err
	}

	for _, file := range files {
		record, done := applied[file.Version]
		if !done {
			if err := runner.apply(file); err != nil {
				return err
			}
			continue
		}
		if err := runner.verify(record, file); err != nil {
			return err
		}
	}
	return nil
}

func (runner migrator) ensureBookkeeping() error {
	timestampType := "DATETIME"
	if runner.dialect == dialectPostgres {
		timestampType = "TIMESTAMPTZ"
	}
	statement := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, timestampType)
	if err := runner.database.Exec(statement).Error; err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	hasChecksum, err := runner.columnExists("schema_migrations", "checksum")
	if err != nil {
		return err
	}
	if !hasChecksum {
		if err := runner.database.Exec(`ALTER TABLE schema_migrations ADD COLUMN checksum TEXT NOT NULL DEFAULT ''`).Error; err != nil {
			return fmt.Errorf("add schema_migrations checksum: %w", err)
		}
	}
	return nil
}

func (runner migrator) applied() (map[string]schemaMigration, error) {
	var rows []schemaMigration
	if err := runner.database.Order("version").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load applied migrations: %w", err)
	}
	byVersion := make(map[string]schemaMigration, len(rows))
	for _, row := range rows {
		byVersion[row.Version] = row
	}
	return byVersion, nil
}

func (runner migrator) apply(file migrationFile) error {
	statements := splitSQLStatements(file.SQL)
	if len(statements) == 0 {
		return fmt.Errorf("migration %s has no SQL statements", file.Name)
	}

	return runner.database.Transaction(func(tx *gorm.DB) error {
		scoped := migrator{database: tx, dialect: runner.dialect}
		for _, statement := range statements {
			skip, err := scoped.addsExistingColumn(statement)
			if err != nil {
				return fmt.Errorf("inspect migration %s: %w", file.Name, err)
			}
			if skip {
				continue
			}
			if err := tx.Exec(statement).Error; err != nil {
				return fmt.Errorf("execute migration %s statement %q: %w", file.Name, statement, err)
			}
		}

		record := schemaMigration{
			Version:   file.Version,
			Name:      file.Name,
			Checksum:  file.Checksum,
			AppliedAt: time.Now().UTC(),
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", file.Name, err)
		}
		return nil
	})
}

func (runner migrator) verify(record schemaMigration, file migrationFile) error {
	switch record.Checksum {
	case file.Checksum:
		return nil
	case "":
		return runner.database.Model(&schemaMigration{}).
			Where("version = ?", record.Version).
			Update("checksum", file.Checksum).Error
	default:
		return fmt.Errorf("%w: %s", ErrMigrationModified, file.Name)
	}
}

// addsExistingColumn reports whether statement is an ADD COLUMN for a column the table already has.
func (runner migrator) addsExistingColumn(statement string) (bool, error) {
	matches := addColumnStatement.FindStringSubmatch(strings.TrimSpace(statement))
	if len(matches) != 3 {
		return false, nil
	}
	return runner.columnExists(unquoteIdentifier(matches[1]), unquoteIdentifier(matches[2]))
}

func (runner migrator) columnExists(table string, column string) (bool, error) {
	if !runner.database.Migrator().HasTable(table) {
		return false, nil
	}
	columns, err := runner.database.Migrator().ColumnTypes(table)
	if err != nil {
		return false, fmt.Errorf("inspect columns of %s: %w", table, err)
	}
	for _, existing := range columns {
		if strings.EqualFold(existing.Name(), column) {
			return true, nil
		}
	}
	return false, nil
}

func loadMigrationFiles(dialect string) ([]migrationFile, error) {
	entries, err := fs.ReadDir(embeddedmigrations.Files, dialect)
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}

	files := make([]migrationFile, 0, len(entries))
	owners := make(map[string]string, len(entries))
	for _, entry := range entries {
		matches := migrationFileName.FindStringSubmatch(entry.Name())
		if entry.IsDir() || len(matches) != 2 {
			continue
		}

		version := matches[1]
		if owner, taken := owners[version]; taken {
			return nil, fmt.Errorf("migration version %s used by %s and %s", version, owner, entry.Name())
		}
		owners[version] = entry.Name()

		order, err := strconv.Atoi(version)
		if err != nil {
			return nil, fmt.Errorf("parse migration version %s: %w", entry.Name(), err)
		}
		raw, err := fs.ReadFile(embeddedmigrations.Files, path.Join(dialect, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		digest := sha256.Sum256(raw)

		files = append(files, migrationFile{
			Version:  version,
			Order:    order,
			Name:     entry.Name(),
			Checksum: hex.EncodeToString(digest[:]),
			SQL:      string(raw),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Order < files[j].Order
	})
	return files, nil
}

func splitSQLStatements(sqlText string) []string {
	var statements []string
	for _, part := range strings.Split(sqlText, ";") {
		if statement := strings.TrimSpace(part); statement != "" {
			statements = append(statements, statement)
		}
	}
	return statements
}

func unquoteIdentifier(identifier string) string {
	return strings.Trim(strings.TrimSpace(identifier), "\"`")
}
