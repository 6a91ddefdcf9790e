package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// BundleExt is the extension of client credential bundles.
const BundleExt = ".ovpn"

var (
	ErrNotFound        = errors.New("client not found")
	ErrIndexOutOfRange = errors.New("client index out of range")
	ErrInvalidName     = errors.New("invalid client name")
)

// Catalog is a read-only view over the directory holding client bundles.
// Nothing is cached: every call reflects the directory as it is now.
type Catalog struct {
	dir string
}

func New(dir string) *Catalog {
	return &Catalog{dir: dir}
}

func (c *Catalog) Dir() string {
	return c.dir
}

// List returns client names sorted ascending.
func (c *Catalog) List() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read client directory %s: %w", c.dir, err)
	}

	clients := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !entry.Type().IsRegular() {
			continue
		}
		name, ok := strings.CutSuffix(entry.Name(), BundleExt)
		if !ok || name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		clients = append(clients, name)
	}
	sort.Strings(clients)
	return clients, nil
}

// Resolve maps a user token to a client name. Numeric tokens are 1-based
// positions in clients; anything else is taken literally and is not checked
// for existence here.
func Resolve(token string, clients []string) (string, error) {
	i, err := strconv.Atoi(token)
	if errors.Is(err, strconv.ErrRange) {
		return "", fmt.Errorf("%w: %s (have %d)", ErrIndexOutOfRange, token, len(clients))
	}
	if err != nil {
		return token, nil
	}
	if i < 1 || i > len(clients) {
		return "", fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, i, len(clients))
	}
	return clients[i-1], nil
}

// ValidateName rejects names that could escape the catalog directory or that
// cannot be passed safely as a single operand.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if name == "." || name == ".." || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("%w: %q must not start with '-'", ErrInvalidName, name)
	}
	for _, r := range name {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}

// Path returns where the bundle for client lives.
func (c *Catalog) Path(client string) (string, error) {
	if err := ValidateName(client); err != nil {
		return "", err
	}
	return filepath.Join(c.dir, client+BundleExt), nil
}

func (c *Catalog) Exists(client string) bool {
	path, err := c.Path(client)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Open returns the bundle for client. The caller closes it.
func (c *Catalog) Open(client string) (*os.File, error) {
	path, err := c.Path(client)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, client)
		}
		return nil, fmt.Errorf("failed to open bundle for %s: %w", client, err)
	}
	return f, nil
}
