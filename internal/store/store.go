package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/polyfarm/backend/internal/cipher"
)

// DefaultPassword keeps the store usable when the operator skips the prompt.
const DefaultPassword = "polyfarm"

// Options wires a Store to its on-disk files and the session cipher.
type Options struct {
	StorePath      string
	KeysPath       string
	ProxiesPath    string
	RecipientsPath string

	Cipher   *cipher.KeyCipher
	Password string
}

func (o *Options) password() string {
	if o.Password == "" {
		return DefaultPassword
	}
	return o.Password
}

// Store is the ordered in-memory account collection. Persisted order is
// creation order until Shuffle changes it. Mutating methods rewrite the whole
// store file; callers on the same instance must not mutate concurrently.
type Store struct {
	Accounts []*Account

	opts Options
}

// Rebuild creates a store from the three line-oriented input files.
// Every index up to the longest list must have an encrypted key; a missing
// proxy or recipient just means "none" for that account. Each key is
// decrypted eagerly, so a wrong password fails here with the offending index
// rather than later mid-workflow. On success the store is persisted.
func Rebuild(opts Options) (*Store, error) {
	keys, err := readLines(opts.KeysPath)
	if err != nil {
		return nil, fmt.Errorf("read encrypted keys: %w", err)
	}
	proxies, err := readLines(opts.ProxiesPath)
	if err != nil {
		return nil, fmt.Errorf("read proxies: %w", err)
	}
	recipients, err := readLines(opts.RecipientsPath)
	if err != nil {
		return nil, fmt.Errorf("read recipients: %w", err)
	}

	password := opts.password()
	maxLen := max(len(keys), len(proxies), len(recipients))
	accounts := make([]*Account, 0, maxLen)

	for i := 0; i < maxLen; i++ {
		if i >= len(keys) {
			return nil, fmt.Errorf("missing encrypted private key at position %d", i)
		}

		privateKey, err := opts.Cipher.Decrypt(keys[i], password)
		if err != nil {
			return nil, fmt.Errorf("decrypt private key at position %d: %w", i, err)
		}

		account, err := NewAccount(privateKey, keys[i], lineAt(proxies, i), lineAt(recipients, i))
		if err != nil {
			return nil, fmt.Errorf("account at position %d: %w", i, err)
		}
		accounts = append(accounts, account)
	}

	s := &Store{Accounts: accounts, opts: opts}
	if err := s.Persist(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the persisted store and decrypts every record with the session
// password. The first decryption failure aborts the whole load.
func Load(opts Options) (*Store, error) {
	raw, err := os.ReadFile(opts.StorePath)
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}

	var accounts []*Account
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}

	password := opts.password()
	for i, account := range accounts {
		privateKey, err := opts.Cipher.Decrypt(account.EncryptedPrivateKey, password)
		if err != nil {
			return nil, fmt.Errorf("decrypt account %d (%s): %w", i, account.Address, err)
		}
		if err := account.setPrivateKey(privateKey); err != nil {
			return nil, fmt.Errorf("account %d: %w", i, err)
		}
	}

	return &Store{Accounts: accounts, opts: opts}, nil
}

// Persist rewrites the whole store file. Only ciphertext ever hits disk:
// Account serializes the encrypted key and omits the plaintext field.
func (s *Store) Persist() error {
	data, err := json.MarshalIndent(s.Accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	if dir := filepath.Dir(s.opts.StorePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}
	if err := os.WriteFile(s.opts.StorePath, data, 0o600); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	return nil
}

// SelectRandom returns a uniformly random account among those matching the
// filter, or nil when none match. Reservoir sampling keeps the choice uniform
// without materializing the filtered set.
func (s *Store) SelectRandom(filter func(*Account) bool) *Account {
	var chosen *Account
	seen := 0
	for _, account := range s.Accounts {
		if !filter(account) {
			continue
		}
		seen++
		if rand.IntN(seen) == 0 {
			chosen = account
		}
	}
	return chosen
}

// Shuffle permutes the account order uniformly and re-persists the store.
func (s *Store) Shuffle() error {
	rand.Shuffle(len(s.Accounts), func(i, j int) {
		s.Accounts[i], s.Accounts[j] = s.Accounts[j], s.Accounts[i]
	})
	return s.Persist()
}

// Addresses returns the account addresses in store order.
func (s *Store) Addresses() []string {
	out := make([]string, len(s.Accounts))
	for i, account := range s.Accounts {
		out[i] = account.Address
	}
	return out
}

// LoadProxyPool reads a proxies file into parsed endpoint URLs. Workflows
// that take addresses from outside the store still route every request
// through a proxy, so an empty pool is an error rather than "direct".
func LoadProxyPool(path string) ([]*url.URL, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, fmt.Errorf("read proxies: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("proxy pool %s is empty", path)
	}

	pool := make([]*url.URL, len(lines))
	for i, line := range lines {
		u, err := url.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("parse proxy %q: %w", line, err)
		}
		pool[i] = u
	}
	return pool, nil
}

// RandomProxy returns a uniformly chosen endpoint from a non-empty pool.
func RandomProxy(pool []*url.URL) *url.URL {
	return pool[rand.IntN(len(pool))]
}

// readLines returns the non-empty trimmed lines of a file.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func lineAt(lines []string, i int) *string {
	if i >= len(lines) {
		return nil
	}
	v := lines[i]
	return &v
}
