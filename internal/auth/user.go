package auth

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cloud-scan/controlcenter/internal/ctlerr"
	"golang.org/x/crypto/bcrypt"
)

// Role is one of the three privilege levels of the original htpasswd-backed
// access model (original_source/src/softfab/users.py): guest < user <
// operator.
type Role string

const (
	RoleGuest    Role = "guest"
	RoleUser     Role = "user"
	RoleOperator Role = "operator"
)

func (r Role) valid() bool {
	return r == RoleGuest || r == RoleUser || r == RoleOperator
}

// User is an account entry in the password file: name, role, bcrypt hash of
// the password. Kept in a single flat file rather than the per-record XML
// stores, mirroring the original's separate passwd file of salted
// password hashes.
type User struct {
	Name         string
	Role         Role
	PasswordHash string
}

// UserStore is a flat, atomically-rewritten password file, one line per
// user: "name:role:bcryptHash".
type UserStore struct {
	mu   sync.Mutex
	path string
}

func NewUserStore(path string) *UserStore {
	return &UserStore{path: path}
}

func (s *UserStore) load() (map[string]User, error) {
	users := make(map[string]User)
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return users, nil
	}
	if err != nil {
		return nil, ctlerr.Internalf(err, "auth: opening user store %s", s.path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			continue
		}
		users[parts[0]] = User{Name: parts[0], Role: Role(parts[1]), PasswordHash: parts[2]}
	}
	if err := scanner.Err(); err != nil {
		return nil, ctlerr.Internalf(err, "auth: reading user store %s", s.path)
	}
	return users, nil
}

func (s *UserStore) save(users map[string]User) error {
	names := make([]string, 0, len(users))
	for n := range users {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, n := range names {
		u := users[n]
		fmt.Fprintf(&b, "%s:%s:%s\n", u.Name, u.Role, u.PasswordHash)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".users-*.tmp")
	if err != nil {
		return ctlerr.Internalf(err, "auth: creating temp user store file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		return ctlerr.Internalf(err, "auth: writing user store")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return ctlerr.Internalf(err, "auth: syncing user store")
	}
	if err := tmp.Close(); err != nil {
		return ctlerr.Internalf(err, "auth: closing user store")
	}
	return os.Rename(tmp.Name(), s.path)
}

// Add creates a new user account, failing if one already exists under the
// same name ("user add NAME [--role ROLE]").
func (s *UserStore) Add(name string, role Role, password string) error {
	if !role.valid() {
		return ctlerr.InvalidRequestf("auth: unknown role %q", role)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return err
	}
	if _, exists := users[name]; exists {
		return ctlerr.InvalidRequestf("auth: user %s already exists", name)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return ctlerr.Internalf(err, "auth: hashing password for %s", name)
	}
	users[name] = User{Name: name, Role: role, PasswordHash: string(hash)}
	return s.save(users)
}

// Remove deletes a user account. The --force/lookup-failure exit-code
// semantics for "user remove NAME [--force]" are enforced by the CLI
// layer; this just reports whether the user existed.
func (s *UserStore) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return err
	}
	if _, exists := users[name]; !exists {
		return ctlerr.InvalidRequestf("auth: user %s does not exist", name)
	}
	delete(users, name)
	return s.save(users)
}

// Show returns a user's record ("user show NAME [--json]").
func (s *UserStore) Show(name string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return User{}, err
	}
	u, exists := users[name]
	if !exists {
		return User{}, ctlerr.InvalidRequestf("auth: user %s does not exist", name)
	}
	return u, nil
}

// SetRole changes a user's role ("user role NAME ROLE").
func (s *UserStore) SetRole(name string, role Role) error {
	if !role.valid() {
		return ctlerr.InvalidRequestf("auth: unknown role %q", role)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return err
	}
	u, exists := users[name]
	if !exists {
		return ctlerr.InvalidRequestf("auth: user %s does not exist", name)
	}
	u.Role = role
	users[name] = u
	return s.save(users)
}

// VerifyPassword checks a plaintext password against the stored bcrypt
// hash for name.
func (s *UserStore) VerifyPassword(name, password string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return User{}, err
	}
	u, exists := users[name]
	if !exists {
		return User{}, ctlerr.AccessDeniedf("auth: unknown user %s", name)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ctlerr.AccessDeniedf("auth: invalid password for %s", name)
	}
	return u, nil
}
