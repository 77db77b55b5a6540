package config

import (
	"strconv"

	"drop-desktop/internal/database"
)

// Keys for AppSettings in DB
const (
	KeyMaxDownloadThreads = "max_download_threads"
	KeyAutostart          = "autostart"
	KeyForceOffline       = "force_offline"
	KeyControlToken       = "control_token"
	KeyControlPort        = "control_port"
	KeyDownloadRateLimit  = "download_rate_limit"
)

const (
	defaultMaxDownloadThreads = 4
	defaultControlPort        = 4664
)

type ConfigManager struct {
	db *database.DB
}

func NewConfigManager(db *database.DB) *ConfigManager {
	return &ConfigManager{db: db}
}

// MaxDownloadThreads is the chunk worker pool size (validators use it too).
func (c *ConfigManager) MaxDownloadThreads() int {
	valStr, err := c.db.GetString(KeyMaxDownloadThreads)
	if err != nil || valStr == "" {
		return defaultMaxDownloadThreads
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 1 {
		return defaultMaxDownloadThreads
	}
	return val
}

func (c *ConfigManager) SetMaxDownloadThreads(n int) error {
	if n < 1 {
		n = 1
	}
	return c.db.SetString(KeyMaxDownloadThreads, strconv.Itoa(n))
}

func (c *ConfigManager) Autostart() bool {
	val, err := c.db.GetString(KeyAutostart)
	if err != nil {
		return false
	}
	return val == "true"
}

func (c *ConfigManager) SetAutostart(enabled bool) error {
	return c.db.SetString(KeyAutostart, strconv.FormatBool(enabled))
}

// ForceOffline makes object fetches read only from the object cache. Other
// server calls (manifest, download context, chunks, auth) do not consult it.
func (c *ConfigManager) ForceOffline() bool {
	val, err := c.db.GetString(KeyForceOffline)
	if err != nil {
		return false
	}
	return val == "true"
}

func (c *ConfigManager) SetForceOffline(enabled bool) error {
	return c.db.SetString(KeyForceOffline, strconv.FormatBool(enabled))
}

// DownloadRateLimit is the global byte-per-second cap for chunk workers.
// 0 means unlimited.
func (c *ConfigManager) DownloadRateLimit() int {
	valStr, err := c.db.GetString(KeyDownloadRateLimit)
	if err != nil || valStr == "" {
		return 0
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		return 0
	}
	return val
}

func (c *ConfigManager) SetDownloadRateLimit(bytesPerSec int) error {
	if bytesPerSec < 0 {
		bytesPerSec = 0
	}
	return c.db.SetString(KeyDownloadRateLimit, strconv.Itoa(bytesPerSec))
}

func (c *ConfigManager) ControlPort() int {
	valStr, err := c.db.GetString(KeyControlPort)
	if err != nil || valStr == "" {
		return defaultControlPort
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultControlPort
	}
	return val
}

func (c *ConfigManager) ControlToken() string {
	val, err := c.db.GetString(KeyControlToken)
	if err != nil {
		return ""
	}
	return val
}

func (c *ConfigManager) SetControlToken(token string) error {
	return c.db.SetString(KeyControlToken, token)
}
