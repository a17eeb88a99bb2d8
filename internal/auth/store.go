// Package auth holds the credential store, password hashing and the
// server-side session registry that gates the dashboard.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// Credential is one stored user entry. PasswordHash is a bcrypt digest;
// the plaintext is never retained after hashing.
type Credential struct {
	PasswordHash string `json:"password" toml:"password"`
	Name         string `json:"name" toml:"name"`
	Role         string `json:"role" toml:"role"`
}

// UserInfo is a credential entry with the password hash stripped, safe to
// hand back to clients.
type UserInfo struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Store maps usernames to credentials. It is loaded once at startup from
// a secrets file when one is configured and non-empty, otherwise from a
// JSON credentials file. Any read or parse failure degrades to an empty
// mapping, which makes every login fail closed.
type Store struct {
	credentialsPath string
	users           map[string]Credential
	log             zerolog.Logger
}

// secretsFile mirrors the [credentials] section of a managed secrets
// document.
type secretsFile struct {
	Credentials map[string]Credential `toml:"credentials"`
}

// NewStore loads credentials from secretsPath (optional, may be "") or
// credentialsPath. It never returns an error: load failures leave the
// store empty.
func NewStore(credentialsPath, secretsPath string, log zerolog.Logger) *Store {
	s := &Store{
		credentialsPath: credentialsPath,
		users:           map[string]Credential{},
		log:             log,
	}
	s.load(secretsPath)
	return s
}

func (s *Store) load(secretsPath string) {
	if secretsPath != "" {
		var sf secretsFile
		if _, err := toml.DecodeFile(secretsPath, &sf); err != nil {
			s.log.Warn().Err(err).Str("path", secretsPath).Msg("Failed to read secrets file")
		} else if len(sf.Credentials) > 0 {
			s.users = sf.Credentials
			return
		}
	}

	raw, err := os.ReadFile(s.credentialsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", s.credentialsPath).Msg("Failed to read credentials file")
		}
		return
	}
	var users map[string]Credential
	if err := json.Unmarshal(raw, &users); err != nil {
		s.log.Warn().Err(err).Str("path", s.credentialsPath).Msg("Failed to parse credentials file; all logins will fail")
		return
	}
	s.users = users
}

// Authenticate reports whether username/password match a stored entry.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *Store) Authenticate(username, password string) bool {
	cred, ok := s.users[username]
	if !ok {
		return false
	}
	return VerifyPassword(password, cred.PasswordHash)
}

// Add hashes password and inserts a new entry, persisting the whole
// mapping back to the credentials file. It returns false when the
// username is already taken. Writes are full overwrites; concurrent
// writers can lose updates, an accepted limitation.
func (s *Store) Add(username, password, name, role string) (bool, error) {
	if _, exists := s.users[username]; exists {
		return false, nil
	}
	digest, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	s.users[username] = Credential{PasswordHash: digest, Name: name, Role: role}
	if err := s.save(); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes a user and persists the mapping. It returns false when
// the username does not exist.
func (s *Store) Remove(username string) (bool, error) {
	if _, exists := s.users[username]; !exists {
		return false, nil
	}
	delete(s.users, username)
	if err := s.save(); err != nil {
		return false, err
	}
	return true, nil
}

// List returns every user's public info, sorted by username.
func (s *Store) List() []UserInfo {
	out := make([]UserInfo, 0, len(s.users))
	for username, cred := range s.users {
		out = append(out, UserInfo{Username: username, Name: cred.Name, Role: cred.Role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// GetInfo returns the entry for username without its password hash, or
// nil when the user does not exist.
func (s *Store) GetInfo(username string) *UserInfo {
	cred, ok := s.users[username]
	if !ok {
		return nil
	}
	return &UserInfo{Username: username, Name: cred.Name, Role: cred.Role}
}

func (s *Store) save() error {
	raw, err := json.MarshalIndent(s.users, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := os.WriteFile(s.credentialsPath, raw, 0o600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	return nil
}
