package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Keys inside the persisted session file. These mirror the two browser
// storage keys the web client used.
const (
	sessionUserKey = "webstertrack_user"
	sessionAuthKey = "webstertrack_auth"
)

// SessionFile persists the mock auth session between process runs: one
// key holds the serialized user, the other an "is authenticated" flag.
type SessionFile struct {
	path string
}

func NewSessionFile(path string) *SessionFile {
	return &SessionFile{path: path}
}

// Load restores the persisted user. It returns (nil, nil) when no session
// is stored; a corrupt file is cleared and treated the same way.
func (f *SessionFile) Load() (*AuthUser, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var keys map[string]string
	if err := json.Unmarshal(data, &keys); err != nil {
		f.Clear()
		return nil, nil
	}
	if keys[sessionAuthKey] != "true" || keys[sessionUserKey] == "" {
		return nil, nil
	}

	var user AuthUser
	if err := json.Unmarshal([]byte(keys[sessionUserKey]), &user); err != nil {
		f.Clear()
		return nil, nil
	}
	return &user, nil
}

func (f *SessionFile) Save(user *AuthUser) error {
	encoded, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}
	keys := map[string]string{
		sessionUserKey: string(encoded),
		sessionAuthKey: "true",
	}
	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (f *SessionFile) Clear() {
	_ = os.Remove(f.path)
}
