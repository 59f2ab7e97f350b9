package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/polyfarm/backend/internal/cipher"
	"github.com/polyfarm/backend/internal/config"
	"github.com/polyfarm/backend/internal/db"
	"github.com/polyfarm/backend/internal/export"
	"github.com/polyfarm/backend/internal/models"
	"github.com/polyfarm/backend/internal/notifications"
	"github.com/polyfarm/backend/internal/onchain"
	"github.com/polyfarm/backend/internal/repository"
	"github.com/polyfarm/backend/internal/scrape"
	"github.com/polyfarm/backend/internal/stats"
	"github.com/polyfarm/backend/internal/store"
)

var (
	red   = color.New(color.FgRed).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "polyfarm",
		Usage: "encrypted account store and on-chain statistics aggregator",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "ask-password",
				Aliases: []string{"p"},
				Usage:   "prompt for the store password instead of using STORE_PASSWORD",
			},
		},
		Commands: []*cli.Command{
			encryptCommand(),
			initCommand(),
			statsCommand(),
			statsFileCommand(),
			shuffleCommand(),
			pickCommand(),
			proxyAddressCommand(),
			historyCommand(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		os.Exit(1)
	}
}

func encryptCommand() *cli.Command {
	return &cli.Command{
		Name:  "encrypt",
		Usage: "encrypt a private key for the keys file",
		Action: func(c *cli.Context) error {
			cfg, password, err := setup(c)
			if err != nil {
				return err
			}

			kc, err := newCipher(cfg)
			if err != nil {
				return err
			}

			fmt.Fprint(os.Stderr, "Private key: ")
			key, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("read private key: %w", err)
			}

			if password == "" {
				password = store.DefaultPassword
			}
			blob, err := kc.Encrypt(strings.TrimSpace(string(key)), password)
			if err != nil {
				return fmt.Errorf("encrypt: %w", err)
			}
			fmt.Println(blob)
			return nil
		},
	}
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "build the encrypted store from the keys, proxies and recipients files",
		Action: func(c *cli.Context) error {
			cfg, password, err := setup(c)
			if err != nil {
				return err
			}

			kc, err := newCipher(cfg)
			if err != nil {
				return err
			}

			st, err := store.Rebuild(storeOptions(cfg, kc, password))
			if err != nil {
				return fmt.Errorf("rebuild store: %w", err)
			}

			fmt.Printf("%s %d accounts written to %s\n", green("[OK]"), len(st.Accounts), cfg.StorePath)
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "aggregate balances, positions and activity for every stored account",
		Action: func(c *cli.Context) error {
			cfg, password, err := setup(c)
			if err != nil {
				return err
			}

			st, err := openStore(cfg, password)
			if err != nil {
				return err
			}

			deriver := onchain.NewProxyWalletDeriver(cfg.ProxyFactoryAddress, cfg.ProxyInitCodeHash)
			targets := make([]stats.Target, 0, len(st.Accounts))
			for _, a := range st.Accounts {
				proxyURL, err := a.ProxyURL()
				if err != nil {
					return err
				}
				targets = append(targets, stats.Target{
					ProxyWallet: deriver.Derive(common.HexToAddress(a.Address)).Hex(),
					Proxy:       proxyURL,
				})
			}

			return runReport(c.Context, cfg, targets)
		},
	}
}

func statsFileCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats-file",
		Usage: "aggregate statistics for proxy wallet addresses listed in a file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "path to a file with one proxy wallet address per line",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			addresses, err := readAddressFile(c.String("file"))
			if err != nil {
				return err
			}
			if len(addresses) == 0 {
				return fmt.Errorf("no addresses in %s", c.String("file"))
			}

			// File-supplied addresses have no stored proxy assignment, so
			// each one gets a random endpoint from the proxy pool.
			pool, err := store.LoadProxyPool(cfg.ProxiesPath)
			if err != nil {
				return err
			}

			targets := make([]stats.Target, 0, len(addresses))
			for _, addr := range addresses {
				targets = append(targets, stats.Target{
					ProxyWallet: common.HexToAddress(addr).Hex(),
					Proxy:       store.RandomProxy(pool),
				})
			}

			return runReport(c.Context, cfg, targets)
		},
	}
}

func shuffleCommand() *cli.Command {
	return &cli.Command{
		Name:  "shuffle",
		Usage: "randomize the stored account order",
		Action: func(c *cli.Context) error {
			cfg, password, err := setup(c)
			if err != nil {
				return err
			}

			st, err := openStore(cfg, password)
			if err != nil {
				return err
			}

			if err := st.Shuffle(); err != nil {
				return fmt.Errorf("shuffle: %w", err)
			}
			fmt.Printf("%s shuffled %d accounts\n", green("[OK]"), len(st.Accounts))
			return nil
		},
	}
}

func pickCommand() *cli.Command {
	return &cli.Command{
		Name:  "pick",
		Usage: "select one random account from the store",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "with-proxy", Usage: "only consider accounts with a proxy endpoint"},
			&cli.BoolFlag{Name: "with-recipient", Usage: "only consider accounts with a recipient"},
		},
		Action: func(c *cli.Context) error {
			cfg, password, err := setup(c)
			if err != nil {
				return err
			}

			st, err := openStore(cfg, password)
			if err != nil {
				return err
			}

			account := st.SelectRandom(func(a *store.Account) bool {
				if c.Bool("with-proxy") && a.Proxy == nil {
					return false
				}
				if c.Bool("with-recipient") && a.Recipient == nil {
					return false
				}
				return true
			})
			if account == nil {
				return fmt.Errorf("no account matches the filter")
			}

			fmt.Println(account.Address)
			return nil
		},
	}
}

func proxyAddressCommand() *cli.Command {
	return &cli.Command{
		Name:  "proxy-address",
		Usage: "derive and export the proxy wallet for every stored account",
		Action: func(c *cli.Context) error {
			cfg, password, err := setup(c)
			if err != nil {
				return err
			}

			st, err := openStore(cfg, password)
			if err != nil {
				return err
			}

			deriver := onchain.NewProxyWalletDeriver(cfg.ProxyFactoryAddress, cfg.ProxyInitCodeHash)
			infos := make([]models.AddressInfo, 0, len(st.Accounts))
			for _, a := range st.Accounts {
				infos = append(infos, models.AddressInfo{
					Address:     a.Address,
					ProxyWallet: deriver.Derive(common.HexToAddress(a.Address)).Hex(),
				})
			}

			if err := export.WriteAddressTable(os.Stdout, infos); err != nil {
				return err
			}
			if err := export.WriteAddressCSV(cfg.AddressCSVPath, infos); err != nil {
				return err
			}
			fmt.Printf("%s exported %d addresses to %s\n", green("[OK]"), len(infos), cfg.AddressCSVPath)
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "show recent aggregation runs from the history database",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.DBEnabled() {
				return fmt.Errorf("history requires database configuration (DB_USER et al)")
			}

			pool, err := db.Connect(cfg.DSN())
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			if err := db.TestConnection(pool); err != nil {
				return fmt.Errorf("database test query: %w", err)
			}

			repo := repository.NewRunRepo(pool)
			runs, err := repo.Recent(c.Context, c.Int("limit"))
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}

			for _, r := range runs {
				fmt.Printf("[%d] %s accounts=%d registered=%d balance=%s volume=%.2f pnl=%.2f trades=%d\n",
					r.ID, r.RanAt.Format(time.RFC3339), r.Accounts, r.Registered,
					r.TotalBalance, r.TotalVolume, r.TotalPnL, r.TotalTrades)
			}
			return nil
		},
	}
}

// runReport executes the aggregation pipeline against the targets and fans
// the result out to every configured sink.
func runReport(ctx context.Context, cfg *config.Config, targets []stats.Target) error {
	client, err := onchain.NewClient(cfg.PolygonRPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	mc, err := onchain.NewMulticall(client, cfg.MulticallAddress, cfg.USDCEAddress)
	if err != nil {
		return err
	}
	reg := onchain.NewRegistrationChecker(client, cfg.RegMaxAttempts,
		time.Duration(cfg.RegDelayMillis)*time.Millisecond)
	scrapeClient := scrape.NewClient(cfg.DataAPIURL,
		time.Duration(cfg.HTTPTimeoutSecs)*time.Second, cfg.ScrapeMaxAttempts)

	pipeline := stats.New(mc, reg, scrape.Sources(scrapeClient), cfg.TokenDecimals)
	report, err := pipeline.Run(ctx, targets)
	if err != nil {
		return err
	}

	if err := export.WriteStatsTable(os.Stdout, report.Rows, report.Total); err != nil {
		return err
	}
	if err := export.WriteStatsCSV(cfg.StatsCSVPath, report.Rows, report.Total); err != nil {
		return err
	}
	fmt.Printf("%s report written to %s\n", green("[OK]"), cfg.StatsCSVPath)

	if cfg.DBEnabled() {
		if err := recordRun(ctx, cfg, report); err != nil {
			fmt.Printf("[WARN] history not recorded: %v\n", err)
		}
	}

	sender := notifications.NewSender(cfg.WebhookURL, cfg.BotName)
	if sender.Enabled() {
		sender.SendRunSummary(report.Summary)
	}
	return nil
}

func recordRun(ctx context.Context, cfg *config.Config, report *stats.Report) error {
	pool, err := db.Connect(cfg.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.TestConnection(pool); err != nil {
		return err
	}

	repo := repository.NewRunRepo(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	runID, err := repo.Record(ctx, report.Summary, report.Rows)
	if err != nil {
		return err
	}
	fmt.Printf("[DB] Run recorded with id %d\n", runID)
	return nil
}

func setup(c *cli.Context) (*config.Config, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}

	password := os.Getenv("STORE_PASSWORD")
	if c.Bool("ask-password") {
		password, err = promptPassword()
		if err != nil {
			return nil, "", err
		}
	}
	return cfg, password, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Print()
	return cfg, nil
}

func openStore(cfg *config.Config, password string) (*store.Store, error) {
	kc, err := newCipher(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Load(storeOptions(cfg, kc, password))
	if err != nil {
		return nil, fmt.Errorf("failed to read database (wrong password?): %w", err)
	}
	return st, nil
}

func storeOptions(cfg *config.Config, kc *cipher.KeyCipher, password string) store.Options {
	return store.Options{
		StorePath:      cfg.StorePath,
		KeysPath:       cfg.KeysPath,
		ProxiesPath:    cfg.ProxiesPath,
		RecipientsPath: cfg.RecipientsPath,
		Cipher:         kc,
		Password:       password,
	}
}

// newCipher picks the key derivation per config. Scrypt mode persists its
// salt next to the store and reuses it on later runs.
func newCipher(cfg *config.Config) (*cipher.KeyCipher, error) {
	if cfg.KDFMode != "scrypt" {
		return cipher.New(), nil
	}

	salt, err := os.ReadFile(cfg.SaltPath)
	if errors.Is(err, fs.ErrNotExist) {
		salt, err = cipher.GenerateSalt()
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(cfg.SaltPath), 0o755); err != nil {
			return nil, fmt.Errorf("create salt dir: %w", err)
		}
		if err := os.WriteFile(cfg.SaltPath, salt, 0o600); err != nil {
			return nil, fmt.Errorf("write salt: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	return cipher.NewScrypt(salt), nil
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Store password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

func readAddressFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read address file: %w", err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}
