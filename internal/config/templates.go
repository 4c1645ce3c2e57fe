package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Stock Alerts Configuration

[database]
# SQLite file holding the watchlist and the alert ledger
path = "stock_alerts.db"

[engine]
# Pause after every price fetch, successful or not
symbol_delay = "5s"
# Time zone that defines an alert day ("Local" or an IANA name)
timezone = "Local"

[ledger]
# Alert ledger backend: "sqlite" or "redis"
backend = "sqlite"

[ledger.redis]
addr = "localhost:6379"
db = 0
key_prefix = "stockalerts"
# Keys must outlive the day they describe
ttl = "48h"

[sources.yahoo]
base_url = "https://query1.finance.yahoo.com"
timeout = "10s"
attempts = 3
backoff = "1s"
# Sets the session cookie the quote endpoint's crumb is tied to
cookie_url = "https://fc.yahoo.com"

[sources.finnhub]
base_url = "https://finnhub.io/api/v1"
timeout = "5s"
requests_per_minute = 60

[sources.twelvedata]
base_url = "https://api.twelvedata.com"
timeout = "5s"
requests_per_minute = 8

[sources.eodhd]
base_url = "https://eodhd.com/api"
timeout = "10s"

[sources.alphavantage]
base_url = "https://www.alphavantage.co"
timeout = "10s"
requests_per_minute = 5

[sources.polygon]
timeout = "10s"
requests_per_minute = 5

[sources.kite]
timeout = "10s"

[sources.breaker]
# Consecutive failures before a source is skipped for the cooldown
failure_threshold = 5
cooldown = "30s"

[telegram]
# Markdown, MarkdownV2, HTML or none; alert text is escaped to match
parse_mode = "Markdown"
timeout = "10s"
messages_per_second = 1

[metrics]
# Prometheus Pushgateway URL; empty disables pushing
push_url = ""
job = "stock_alerts"

[log]
level = "info"
console = true
file = true
file_path = "logs/stock_alerts.log"
max_size = 20
max_backups = 7
max_age = 30
`

const envTemplate = `# Stock Alerts Credentials
# WARNING: Keep this file secure! Do not commit to version control.

TELEGRAM_BOT_TOKEN=
TELEGRAM_CHAT_ID=

FINNHUB_API_KEY=
TWELVEDATA_API_KEY=
EODHD_API_KEY=
ALPHA_VANTAGE_API_KEY=
POLYGON_API_KEY=
KITE_API_KEY=
KITE_ACCESS_TOKEN=
REDIS_PASSWORD=
`

// WriteTemplates creates config.toml and .env in configDir. Existing files
// are left untouched; the returned paths are the files actually written.
func WriteTemplates(configDir string) ([]string, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	var written []string

	ok, err := writeIfAbsent(filepath.Join(configDir, "config.toml"), configTemplate, 0644)
	if err != nil {
		return written, fmt.Errorf("writing config template: %w", err)
	}
	if ok {
		written = append(written, filepath.Join(configDir, "config.toml"))
	}

	// Use restricted permissions for the credentials file
	ok, err = writeIfAbsent(filepath.Join(configDir, ".env"), envTemplate, 0600)
	if err != nil {
		return written, fmt.Errorf("writing credentials template: %w", err)
	}
	if ok {
		written = append(written, filepath.Join(configDir, ".env"))
	}

	return written, nil
}

func writeIfAbsent(path, content string, perm os.FileMode) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return false, err
	}
	return true, nil
}
