package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KeyStore is the on-disk half of the key material: hex-encoded seed
// files under a directory the current user owns.
//
// Root seeds live at <dir>/<identifier>/root.key, role keys at
// <dir>/<identifier>/roles/<role>.key, all mode 0600. Role keys are
// derived deterministically from the root seed, so the root file alone
// is a full backup.
type KeyStore struct {
	Directory string
}

// KeyEntry describes one stored identity and its derived roles.
type KeyEntry struct {
	Identifier  string
	Permissions []string
}

func GetDefaultDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".certledger", "keys"), nil
}

// CreateKeyStore opens a store rooted at directory, or at the default
// directory when directory is empty. The directory is created lazily on
// first write.
func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		def, err := GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
		directory = def
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) rootKeyPath(identifier string) string {
	return filepath.Join(ks.Directory, identifier, "root.key")
}

func (ks *KeyStore) roleKeyPath(identifier, role string) string {
	return filepath.Join(ks.Directory, identifier, "roles", role+".key")
}

// Identifiers and roles become path segments, so both are restricted to
// a filename-safe alphabet.
func checkPathSegment(what, s string) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", what)
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return fmt.Errorf("invalid character %q in %s", r, what)
		}
	}
	return nil
}

func CheckKeyName(identifier string) error {
	return checkPathSegment("identifier", identifier)
}

func CheckRole(role string) error {
	return checkPathSegment("role", role)
}

// ParseSeedHex decodes a hex seed string, tolerating surrounding
// whitespace and an optional 0x prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimPrefix(strings.TrimSpace(seedHex), "0x")
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return seed, nil
}

func (ks *KeyStore) writeSeed(path string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		// O_EXCL instead of a stat-then-write race.
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (ks *KeyStore) readSeed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(string(data))
}

// InitializeRootKey stores seed as the root key for identifier and
// returns the issuer key string plus the file it was written to.
// Without overwrite an existing root key is an error.
func (ks *KeyStore) InitializeRootKey(identifier string, seed []byte, overwrite bool) (issuerKey string, filePath string, err error) {
	if err := CheckKeyName(identifier); err != nil {
		return "", "", err
	}
	filePath = ks.rootKeyPath(identifier)
	if err := ks.writeSeed(filePath, seed, overwrite); err != nil {
		return "", "", err
	}
	return GenerateIssuerKeyFromSeed(seed), filePath, nil
}

// DeriveKeyFromRole derives and stores a role key under the identity
// named by from. Re-running with the same inputs writes the same seed.
func (ks *KeyStore) DeriveKeyFromRole(from, role string, overwrite bool) (issuerKey string, filePath string, err error) {
	if err := CheckKeyName(from); err != nil {
		return "", "", err
	}
	if err := CheckRole(role); err != nil {
		return "", "", err
	}
	rootSeed, err := ks.readSeed(ks.rootKeyPath(from))
	if err != nil {
		return "", "", err
	}
	roleSeed, err := DeriveRoleSeed(rootSeed, role)
	if err != nil {
		return "", "", err
	}
	filePath = ks.roleKeyPath(from, role)
	if err := ks.writeSeed(filePath, roleSeed, overwrite); err != nil {
		return "", "", err
	}
	return GenerateIssuerKeyFromSeed(roleSeed), filePath, nil
}

// ExportKey returns the public issuer key string for a stored root key,
// or for one of its role keys when role is non-empty. The seed stays on
// disk.
func (ks *KeyStore) ExportKey(identifier, role string) (string, error) {
	if err := CheckKeyName(identifier); err != nil {
		return "", err
	}
	path := ks.rootKeyPath(identifier)
	if role != "" {
		if err := CheckRole(role); err != nil {
			return "", err
		}
		path = ks.roleKeyPath(identifier, role)
	}
	seed, err := ks.readSeed(path)
	if err != nil {
		return "", err
	}
	return GenerateIssuerKeyFromSeed(seed), nil
}

// LoadSeed resolves a seed from whichever source the caller supplied,
// in priority order: a literal hex seed, an explicit key file path, or
// a stored identity (root key, or role key when signerRole is set).
func (ks *KeyStore) LoadSeed(seedHex, signerName, signerRole, keyFile string) ([]byte, error) {
	switch {
	case seedHex != "":
		return ParseSeedHex(seedHex)
	case keyFile != "":
		return ks.readSeed(keyFile)
	case signerName != "":
		if err := CheckKeyName(signerName); err != nil {
			return nil, err
		}
		if signerRole == "" {
			return ks.readSeed(ks.rootKeyPath(signerName))
		}
		if err := CheckRole(signerRole); err != nil {
			return nil, err
		}
		return ks.readSeed(ks.roleKeyPath(signerName, signerRole))
	default:
		return nil, errors.New("no signer provided")
	}
}

// ListKeys enumerates stored identities and their role keys, sorted by
// name. A missing store directory lists as empty.
func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []KeyEntry
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		out = append(out, KeyEntry{
			Identifier:  entry.Name(),
			Permissions: ks.listRoles(entry.Name()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out, nil
}

func (ks *KeyStore) listRoles(identifier string) []string {
	entries, err := os.ReadDir(filepath.Join(ks.Directory, identifier, "roles"))
	if err != nil {
		return nil
	}
	var roles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(entry.Name(), ".key"); ok {
			roles = append(roles, name)
		}
	}
	sort.Strings(roles)
	return roles
}
