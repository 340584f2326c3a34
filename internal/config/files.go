package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// loadEnvFile reads KEY=VALUE lines from path into the environment. Existing
// variables win. A missing file is ignored.
func loadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = unquote(strings.TrimSpace(val))
		setDefault(key, val)
	}
}

// loadYAMLFile reads a flat YAML mapping into the environment. Keys may be
// written as env names (SUMMARIZER_URL) or in lower case (summarizer_url,
// summarizer-url). Existing variables win.
func loadYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	for k, v := range doc {
		switch v.(type) {
		case map[string]any, []any:
			return fmt.Errorf("config file %s: key %q must be a scalar", path, k)
		case nil:
			continue
		}
		setDefault(envKey(k), fmt.Sprint(v))
	}
	return nil
}

func envKey(k string) string {
	k = strings.TrimSpace(k)
	k = strings.NewReplacer("-", "_", ".", "_").Replace(k)
	return strings.ToUpper(k)
}

func setDefault(key, val string) {
	if key == "" {
		return
	}
	if _, exists := os.LookupEnv(key); exists {
		return
	}
	os.Setenv(key, val)
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
