// Package database owns the persistent client state: auth material, settings,
// durable game statuses, installed versions and install locations.
package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// DataRoot returns the platform data directory for the client, drop/ normally
// and drop-debug/ when DROP_DEBUG is set.
func DataRoot() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	prefix := "drop"
	if os.Getenv("DROP_DEBUG") != "" {
		prefix = "drop-debug"
	}
	return filepath.Join(base, prefix), nil
}

type DB struct {
	gorm *gorm.DB
}

// Open opens (or creates) the sqlite database at path and migrates the schema.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL;")

	if err := db.AutoMigrate(
		&AuthRecord{},
		&AppSetting{},
		&GameStatusRow{},
		&InstalledVersion{},
		&GameVersionRecord{},
		&InstallDir{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &DB{gorm: db}, nil
}

func (d *DB) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --- auth ---

// Auth returns the stored auth record, or nil if the client has never
// completed a handshake.
func (d *DB) Auth() (*AuthRecord, error) {
	var rec AuthRecord
	err := d.gorm.First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (d *DB) SetAuth(rec *AuthRecord) error {
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&AuthRecord{}).Error; err != nil {
			return err
		}
		rec.ID = 0
		return tx.Create(rec).Error
	})
}

func (d *DB) ClearAuth() error {
	return d.gorm.Where("1 = 1").Delete(&AuthRecord{}).Error
}

func (d *DB) SetWebToken(token string) error {
	return d.gorm.Model(&AuthRecord{}).Where("1 = 1").Update("web_token", token).Error
}

// --- settings ---

func (d *DB) GetString(key string) (string, error) {
	var setting AppSetting
	err := d.gorm.First(&setting, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (d *DB) SetString(key, value string) error {
	return d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&AppSetting{Key: key, Value: value}).Error
}

// --- game statuses ---

// GameStatus returns the durable status row for a game. A game the server
// knows but the client has never touched has no row; callers treat that as
// remote.
func (d *DB) GameStatus(gameID string) (*GameStatusRow, error) {
	var row GameStatusRow
	err := d.gorm.First(&row, "game_id = ?", gameID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) SetGameStatus(row *GameStatusRow) error {
	return d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "version_name", "install_dir"}),
	}).Create(row).Error
}

func (d *DB) DeleteGameStatus(gameID string) error {
	return d.gorm.Delete(&GameStatusRow{}, "game_id = ?", gameID).Error
}

// --- installed versions ---

func (d *DB) InstalledVersion(gameID string) (string, error) {
	var row InstalledVersion
	err := d.gorm.First(&row, "game_id = ?", gameID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Version, nil
}

func (d *DB) SetInstalledVersion(gameID, version string) error {
	return d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"version"}),
	}).Create(&InstalledVersion{GameID: gameID, Version: version}).Error
}

func (d *DB) DeleteInstalledVersion(gameID string) error {
	return d.gorm.Delete(&InstalledVersion{}, "game_id = ?", gameID).Error
}

// --- game version records ---

func (d *DB) GameVersion(gameID, versionName string) (*GameVersionRecord, error) {
	var rec GameVersionRecord
	err := d.gorm.First(&rec, "game_id = ? AND version_name = ?", gameID, versionName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (d *DB) SaveGameVersion(rec *GameVersionRecord) error {
	return d.gorm.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "game_id"}, {Name: "version_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"platform", "setup_command", "setup_args", "launch_command", "launch_args", "delta",
		}),
	}).Create(rec).Error
}

// --- install dirs ---

func (d *DB) InstallDirs() ([]InstallDir, error) {
	var dirs []InstallDir
	if err := d.gorm.Order("id").Find(&dirs).Error; err != nil {
		return nil, err
	}
	return dirs, nil
}

// InstallDirAt resolves an install dir by its position in the ordered list,
// which is how the enqueue API addresses them.
func (d *DB) InstallDirAt(index int) (string, error) {
	dirs, err := d.InstallDirs()
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(dirs) {
		return "", fmt.Errorf("install dir index %d out of range (%d dirs)", index, len(dirs))
	}
	return dirs[index].Path, nil
}

func (d *DB) AddInstallDir(path string) error {
	return d.gorm.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&InstallDir{Path: path}).Error
}

func (d *DB) RemoveInstallDir(path string) error {
	return d.gorm.Delete(&InstallDir{}, "path = ?", path).Error
}
