package device

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LoadPasswords reads a JSON object mapping device addresses to passwords.
//
// Keys are lower-cased. An empty path yields an empty map.
//
//	{"aa:bb:cc:dd:ee:ff": "secret"}
func LoadPasswords(path string) (map[string]string, error) {
	passwords := make(map[string]string)
	if path == "" {
		return passwords, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading device password file: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPasswordFile, path, err)
	}

	for address, value := range raw {
		password, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s: expected string password for %s, got %T",
				ErrInvalidPasswordFile, path, address, value)
		}
		passwords[strings.ToLower(address)] = password
	}

	return passwords, nil
}
