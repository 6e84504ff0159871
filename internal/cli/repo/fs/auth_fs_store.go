package fs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/emlanis/secret-ai-writer/internal/cli/repo"
)

// AuthFSStore: файловое хранилище API-токена и адреса, для которого он выпущен.
// Пустой Dir означает пользовательский конфиг-каталог.
type AuthFSStore struct {
	Dir string
}

var _ repo.TokenStore = AuthFSStore{}

func (s AuthFSStore) dir() (string, error) {
	p := s.Dir
	if p == "" {
		cfg, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(cfg, "secret-ai-writer")
	}
	if err := os.MkdirAll(p, 0o700); err != nil {
		return "", err
	}
	return p, nil
}

func (s AuthFSStore) file(name string) (string, error) {
	d, err := s.dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, name), nil
}

func (s AuthFSStore) write(name, value string) error {
	p, err := s.file(name)
	if err != nil {
		return err
	}
	return os.WriteFile(p, []byte(value), 0o600)
}

func (s AuthFSStore) read(name string) (string, error) {
	p, err := s.file(name)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	// обрезаем завершающие переводы строки/пробелы
	v := strings.TrimRight(string(b), " \t\r\n")
	if v == "" {
		return "", errors.New("empty " + name + " file")
	}
	return v, nil
}

// Save сохраняет API-токен в файл.
func (s AuthFSStore) Save(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("empty token")
	}
	return s.write("auth_token", token)
}

// Load читает API-токен из файла.
func (s AuthFSStore) Load() (string, error) { return s.read("auth_token") }

// SaveAddress сохраняет адрес, для которого выпущен токен.
func (s AuthFSStore) SaveAddress(addr string) error {
	if addr == "" {
		return errors.New("empty address")
	}
	return s.write("token_address", addr)
}

// LoadAddress читает адрес последнего выпущенного токена.
func (s AuthFSStore) LoadAddress() (string, error) { return s.read("token_address") }
