package app

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const geminiKeyVar = "GEMINI_API_KEY"

var ErrAPIKeyRequired = errors.New("API key is required")

// KeyStatus reports whether an extraction key is available without exposing it.
type KeyStatus struct {
	Configured bool   `json:"configured"`
	APIKey     string `json:"apiKey"`
	Source     string `json:"source,omitempty"`
}

// keyFile stores the Gemini key as a GEMINI_API_KEY= line of a dotenv file.
// Other lines are preserved.
type keyFile struct {
	mu   sync.Mutex
	path string
}

func (k *keyFile) read() (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	f, err := os.Open(k.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("open key file: %w", err)
	}
	defer f.Close()
	var key string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if v, ok := parseKeyLine(scanner.Text()); ok {
			key = v
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read key file: %w", err)
	}
	return key, nil
}

// write replaces the first GEMINI_API_KEY line, drops any later duplicates,
// and appends the line when none exists.
func (k *keyFile) write(key string) error {
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, "\r\n") {
		return ErrAPIKeyRequired
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	data, err := os.ReadFile(k.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read key file: %w", err)
	}
	line := geminiKeyVar + "=" + key
	var out []string
	replaced := false
	if len(data) > 0 {
		for _, existing := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
			if _, ok := parseKeyLine(existing); ok {
				if !replaced {
					out = append(out, line)
					replaced = true
				}
				continue
			}
			out = append(out, existing)
		}
	}
	if !replaced {
		out = append(out, line)
	}
	if dir := filepath.Dir(k.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create key dir: %w", err)
		}
	}
	tmp := k.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strings.Join(out, "\n")+"\n"), 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	if err := os.Rename(tmp, k.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace key file: %w", err)
	}
	return nil
}

func parseKeyLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "export ")
	name, value, ok := strings.Cut(line, "=")
	if !ok || strings.TrimSpace(name) != geminiKeyVar {
		return "", false
	}
	value = strings.TrimSpace(value)
	value = strings.Trim(value, `"'`)
	return value, true
}

// maskKey keeps only the last four characters.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
