package database

// AuthRecord holds the client certificate material issued by the handshake.
// There is at most one row.
type AuthRecord struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	ClientID    string `json:"client_id"`
	PrivateKey  string `json:"-"` // PKCS#8 PEM
	Certificate string `json:"-"`
	WebToken    string `json:"-"`
}

func (AuthRecord) TableName() string {
	return "auth"
}

// Durable install states for a game.
const (
	StatusRemote             = "remote"
	StatusPartiallyInstalled = "partially_installed"
	StatusInstalled          = "installed"
	StatusSetupRequired      = "setup_required"
)

// GameStatusRow is the durable install state of one game. Every status except
// remote carries the version it refers to and the directory it lives in.
type GameStatusRow struct {
	GameID      string `gorm:"primaryKey" json:"game_id"`
	Status      string `gorm:"index" json:"status"`
	VersionName string `json:"version_name"`
	InstallDir  string `json:"install_dir"`
}

func (GameStatusRow) TableName() string {
	return "game_statuses"
}

// InstalledVersion records which version of a game is currently on disk.
type InstalledVersion struct {
	GameID  string `gorm:"primaryKey" json:"game_id"`
	Version string `json:"version"`
}

func (InstalledVersion) TableName() string {
	return "installed_versions"
}

// GameVersionRecord is the per-version metadata fetched from the server after
// a completed download.
type GameVersionRecord struct {
	GameID        string `gorm:"primaryKey" json:"gameId"`
	VersionName   string `gorm:"primaryKey" json:"versionName"`
	Platform      string `json:"platform"`
	SetupCommand  string `json:"setupCommand"`
	SetupArgs     string `json:"setupArgs"`
	LaunchCommand string `json:"launchCommand"`
	LaunchArgs    string `json:"launchArgs"`
	Delta         bool   `json:"delta"`
}

func (GameVersionRecord) TableName() string {
	return "game_versions"
}

// InstallDir is one user-chosen install location. The enqueue API refers to
// these by list index.
type InstallDir struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Path string `gorm:"uniqueIndex" json:"path"`
}

func (InstallDir) TableName() string {
	return "install_dirs"
}

// AppSetting stores key-value application settings
type AppSetting struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

func (AppSetting) TableName() string {
	return "app_settings"
}
