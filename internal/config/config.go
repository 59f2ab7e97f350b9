package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Blockchain
	PolygonRPCURL    string
	MulticallAddress string
	USDCEAddress     string
	TokenDecimals    int

	// Proxy wallet derivation
	ProxyFactoryAddress string
	ProxyInitCodeHash   string

	// Data API (scraping sources)
	DataAPIURL        string
	HTTPTimeoutSecs   int
	ScrapeMaxAttempts int

	// Registration check
	RegMaxAttempts int
	RegDelayMillis int

	// Store files
	StorePath      string
	SaltPath       string
	KeysPath       string
	ProxiesPath    string
	RecipientsPath string
	KDFMode        string // "sha256" (store-compatible) or "scrypt" (salted)

	// Exports
	StatsCSVPath   string
	AddressCSVPath string

	// Database (optional stats-run history)
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Notifications
	WebhookURL string
	BotName    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Blockchain
		PolygonRPCURL:    envStr("POLYGON_RPC_URL", "https://polygon-rpc.com"),
		MulticallAddress: envStr("MULTICALL_ADDRESS", "0xcA11bde05977b3631167028862bE2a173976CA11"),
		USDCEAddress:     envStr("USDCE_ADDRESS", "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"),
		TokenDecimals:    envInt("TOKEN_DECIMALS", 6),

		ProxyFactoryAddress: envStr("PROXY_FACTORY_ADDRESS", "0xaB45c5A4B0c941a2F231C04C3f49182e1A254052"),
		ProxyInitCodeHash:   envStr("PROXY_INIT_CODE_HASH", "0xd2b1d046f3246c224b340e52fa9bd80b0b1562e25e9691e2b8a0ba27365b47d5"),

		// Data API
		DataAPIURL:        envStr("DATA_API_URL", "https://data-api.polymarket.com"),
		HTTPTimeoutSecs:   envInt("HTTP_TIMEOUT_SECONDS", 30),
		ScrapeMaxAttempts: envInt("SCRAPE_MAX_ATTEMPTS", 3),

		// Registration check
		RegMaxAttempts: envInt("REG_MAX_ATTEMPTS", 60),
		RegDelayMillis: envInt("REG_DELAY_MILLIS", 500),

		// Store
		StorePath:      envStr("STORE_PATH", "data/database.json"),
		SaltPath:       envStr("SALT_PATH", "data/store.salt"),
		KeysPath:       envStr("KEYS_PATH", "data/private_keys.txt"),
		ProxiesPath:    envStr("PROXIES_PATH", "data/proxies.txt"),
		RecipientsPath: envStr("RECIPIENTS_PATH", "data/recipients.txt"),
		KDFMode:        envStr("KDF_MODE", "sha256"),

		// Exports
		StatsCSVPath:   envStr("STATS_CSV_PATH", "data/stats.csv"),
		AddressCSVPath: envStr("ADDRESS_CSV_PATH", "data/address_info.csv"),

		// Database (optional)
		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "polyfarm"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		// Notifications
		WebhookURL: envStr("WEBHOOK_URL", ""),
		BotName:    envStr("BOT_NAME", "Polyfarm"),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.PolygonRPCURL == "" {
		errs = append(errs, "POLYGON_RPC_URL is required")
	}
	if c.DataAPIURL == "" {
		errs = append(errs, "DATA_API_URL is required")
	}
	if c.KDFMode != "sha256" && c.KDFMode != "scrypt" {
		errs = append(errs, fmt.Sprintf("KDF_MODE must be sha256 or scrypt, got %q", c.KDFMode))
	}
	if c.RegMaxAttempts <= 0 {
		errs = append(errs, "REG_MAX_ATTEMPTS must be positive")
	}
	if !c.DBEnabled() {
		fmt.Println("[WARN] DB_USER not set, stats-run history will not be persisted")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// DBEnabled reports whether the optional stats-history database is configured.
func (c *Config) DBEnabled() bool {
	return c.DBUser != ""
}

func (c *Config) Print() {
	fmt.Println("=== Polyfarm Configuration ===")
	fmt.Printf("RPC: %s\n", c.PolygonRPCURL)
	fmt.Printf("Data API: %s\n", c.DataAPIURL)
	fmt.Printf("Token: USDC.e (%s..., %d decimals)\n", truncAddr(c.USDCEAddress), c.TokenDecimals)
	fmt.Printf("Store: %s (KDF: %s)\n", c.StorePath, c.KDFMode)
	fmt.Printf("Registration retry budget: %d attempts\n", c.RegMaxAttempts)
	fmt.Printf("Stats history DB: %s\n", boolLabel(c.DBEnabled(), c.DBHost+"/"+c.DBName, "disabled"))
	fmt.Printf("Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set"))
	fmt.Println("==============================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func truncAddr(addr string) string {
	if len(addr) > 10 {
		return addr[:10]
	}
	return addr
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
