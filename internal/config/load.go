// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/tasklane/tasklane/internal/xdg"
)

// EnvPrefix prefixes environment overrides. Section and key are separated
// by a double underscore: TASKLANE_AUTH__TOKEN_SECRET is auth.token_secret.
const EnvPrefix = "TASKLANE_"

// FlagKeys maps command-line flag names to configuration keys. Flags not
// listed here are not configuration.
var FlagKeys = map[string]string{
	"carrier":             "auth.carrier",
	"cookie-secure":       "auth.cookie_secure",
	"redis-url":           "auth.redis_url",
	"revocation":          "auth.revocation_backend",
	"sweep-interval":      "auth.revocation_sweep_interval",
	"token-ttl":           "auth.token_ttl",
	"auto-migrate":        "database.auto_migrate",
	"connect-retries":     "database.connect_retries",
	"database-url":        "database.url",
	"log-format":          "log.format",
	"log-level":           "log.level",
	"metrics-addr":        "metrics.addr",
	"addr":                "server.addr",
	"api-prefix":          "server.api_prefix",
	"cors-origins":        "server.cors_origins",
	"read-header-timeout": "server.read_header_timeout",
	"shutdown-timeout":    "server.shutdown_timeout",
	"storage":             "storage.backend",
}

// Options controls where Load looks.
type Options struct {
	// ConfigFile is an explicit YAML file. It must exist when set. When
	// empty the XDG default is used if present.
	ConfigFile string

	// DotEnvFile is loaded into the process environment when present.
	// Variables already set are not overwritten.
	DotEnvFile string

	// Flags supplies defaults for unset keys and overrides for flags set
	// on the command line.
	Flags *pflag.FlagSet
}

// Load builds a Config from, lowest to highest: built-in defaults and flag
// defaults, the YAML file, the environment (after .env), and flags set on the
// command line. The result is not validated.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	path, required, err := configPath(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil || required {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, oops.Code("CONFIG_LOAD_FAILED").With("file", path).Wrap(err)
			}
		}
	}

	if opts.DotEnvFile != "" {
		if err := godotenv.Load(opts.DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("file", opts.DotEnvFile).Wrap(err)
		}
	}

	if err := loadLegacyEnv(k); err != nil {
		return nil, err
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := FlagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	return &cfg, nil
}

// configPath returns the file to read and whether it must exist.
func configPath(explicit string) (string, bool, error) {
	if explicit != "" {
		return explicit, true, nil
	}
	path, err := xdg.ConfigFile()
	if err != nil {
		// No home directory means no default file.
		return "", false, nil //nolint:nilerr // absence of a default file is not an error
	}
	return path, false, nil
}

// envKey turns TASKLANE_AUTH__TOKEN_SECRET into auth.token_secret. List
// values are comma separated.
func envKey(name, value string) (string, interface{}) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if key == "server.cors_origins" {
		return key, splitList(value)
	}
	return key, value
}

// legacyEnv maps the original service's variable names to keys.
var legacyEnv = map[string]string{
	"TOKEN_SECRET": "auth.token_secret",
	"DATABASE_URL": "database.url",
	"CLIENT_URL":   "server.cors_origins",
	"PORT":         "server.addr",
}

func loadLegacyEnv(k *koanf.Koanf) error {
	for name, key := range legacyEnv {
		value, ok := os.LookupEnv(name)
		if !ok || value == "" {
			continue
		}
		var v any = value
		switch key {
		case "server.cors_origins":
			v = splitList(value)
		case "server.addr":
			v = ":" + strings.TrimPrefix(value, ":")
		}
		if err := k.Set(key, v); err != nil {
			return oops.Code("CONFIG_LOAD_FAILED").With("env", name).Wrap(err)
		}
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
