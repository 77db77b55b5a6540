package database

import (
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "drop.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAuthRecord(t *testing.T) {
	db := setupTestDB(t)

	rec, err := db.Auth()
	if err != nil {
		t.Fatalf("Auth failed: %v", err)
	}
	if rec != nil {
		t.Fatal("expected no auth record in fresh database")
	}

	err = db.SetAuth(&AuthRecord{ClientID: "c1", PrivateKey: "pem", Certificate: "cert"})
	if err != nil {
		t.Fatalf("SetAuth failed: %v", err)
	}

	rec, err = db.Auth()
	if err != nil || rec == nil {
		t.Fatalf("expected auth record, got %v / %v", rec, err)
	}
	if rec.ClientID != "c1" {
		t.Errorf("expected client id c1, got %s", rec.ClientID)
	}

	// Replacing keeps a single row
	if err := db.SetAuth(&AuthRecord{ClientID: "c2", PrivateKey: "pem2"}); err != nil {
		t.Fatalf("second SetAuth failed: %v", err)
	}
	rec, _ = db.Auth()
	if rec.ClientID != "c2" {
		t.Errorf("expected replacement record, got %s", rec.ClientID)
	}

	if err := db.SetWebToken("tok"); err != nil {
		t.Fatalf("SetWebToken failed: %v", err)
	}
	rec, _ = db.Auth()
	if rec.WebToken != "tok" {
		t.Errorf("web token not stored, got %q", rec.WebToken)
	}

	if err := db.ClearAuth(); err != nil {
		t.Fatalf("ClearAuth failed: %v", err)
	}
	rec, _ = db.Auth()
	if rec != nil {
		t.Error("expected auth cleared")
	}
}

func TestGameStatuses(t *testing.T) {
	db := setupTestDB(t)

	row, err := db.GameStatus("game-1")
	if err != nil {
		t.Fatalf("GameStatus failed: %v", err)
	}
	if row != nil {
		t.Fatal("unknown game should have no status row")
	}

	err = db.SetGameStatus(&GameStatusRow{
		GameID:      "game-1",
		Status:      StatusPartiallyInstalled,
		VersionName: "v1",
		InstallDir:  "/games/game-1",
	})
	if err != nil {
		t.Fatalf("SetGameStatus failed: %v", err)
	}

	row, _ = db.GameStatus("game-1")
	if row == nil || row.Status != StatusPartiallyInstalled {
		t.Fatalf("unexpected row: %+v", row)
	}

	// Upsert to installed
	err = db.SetGameStatus(&GameStatusRow{
		GameID:      "game-1",
		Status:      StatusInstalled,
		VersionName: "v1",
		InstallDir:  "/games/game-1",
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	row, _ = db.GameStatus("game-1")
	if row.Status != StatusInstalled {
		t.Errorf("expected installed, got %s", row.Status)
	}

	if err := db.DeleteGameStatus("game-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	row, _ = db.GameStatus("game-1")
	if row != nil {
		t.Error("expected status removed")
	}
}

func TestInstalledVersions(t *testing.T) {
	db := setupTestDB(t)

	if err := db.SetInstalledVersion("game-1", "v1"); err != nil {
		t.Fatalf("SetInstalledVersion failed: %v", err)
	}
	v, err := db.InstalledVersion("game-1")
	if err != nil || v != "v1" {
		t.Fatalf("expected v1, got %q / %v", v, err)
	}

	if err := db.SetInstalledVersion("game-1", "v2"); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	v, _ = db.InstalledVersion("game-1")
	if v != "v2" {
		t.Errorf("expected v2, got %q", v)
	}

	if err := db.DeleteInstalledVersion("game-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	v, _ = db.InstalledVersion("game-1")
	if v != "" {
		t.Errorf("expected empty after delete, got %q", v)
	}
}

func TestGameVersionRecords(t *testing.T) {
	db := setupTestDB(t)

	err := db.SaveGameVersion(&GameVersionRecord{
		GameID:       "game-1",
		VersionName:  "v1",
		Platform:     "linux",
		SetupCommand: "./setup.sh",
	})
	if err != nil {
		t.Fatalf("SaveGameVersion failed: %v", err)
	}

	rec, err := db.GameVersion("game-1", "v1")
	if err != nil || rec == nil {
		t.Fatalf("GameVersion failed: %v", err)
	}
	if rec.SetupCommand != "./setup.sh" {
		t.Errorf("setup command lost: %q", rec.SetupCommand)
	}

	rec, _ = db.GameVersion("game-1", "v9")
	if rec != nil {
		t.Error("unknown version should be nil")
	}
}

func TestInstallDirs(t *testing.T) {
	db := setupTestDB(t)

	if err := db.AddInstallDir("/ssd/games"); err != nil {
		t.Fatalf("AddInstallDir failed: %v", err)
	}
	if err := db.AddInstallDir("/hdd/games"); err != nil {
		t.Fatalf("AddInstallDir failed: %v", err)
	}
	// Duplicates are ignored
	if err := db.AddInstallDir("/ssd/games"); err != nil {
		t.Fatalf("duplicate AddInstallDir failed: %v", err)
	}

	dirs, err := db.InstallDirs()
	if err != nil {
		t.Fatalf("InstallDirs failed: %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("expected 2 dirs, got %d", len(dirs))
	}

	path, err := db.InstallDirAt(0)
	if err != nil || path != "/ssd/games" {
		t.Errorf("expected first dir /ssd/games, got %q / %v", path, err)
	}
	if _, err := db.InstallDirAt(5); err == nil {
		t.Error("out of range index must error")
	}

	if err := db.RemoveInstallDir("/ssd/games"); err != nil {
		t.Fatalf("RemoveInstallDir failed: %v", err)
	}
	dirs, _ = db.InstallDirs()
	if len(dirs) != 1 || dirs[0].Path != "/hdd/games" {
		t.Errorf("unexpected dirs after remove: %+v", dirs)
	}
}

func TestAppSettings(t *testing.T) {
	db := setupTestDB(t)

	val, err := db.GetString("missing")
	if err != nil || val != "" {
		t.Fatalf("missing key should read empty, got %q / %v", val, err)
	}

	if err := db.SetString("base_url", "https://drop.local"); err != nil {
		t.Fatalf("SetString failed: %v", err)
	}
	val, _ = db.GetString("base_url")
	if val != "https://drop.local" {
		t.Errorf("expected stored value, got %q", val)
	}

	if err := db.SetString("base_url", "https://other"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	val, _ = db.GetString("base_url")
	if val != "https://other" {
		t.Errorf("expected overwrite, got %q", val)
	}
}
