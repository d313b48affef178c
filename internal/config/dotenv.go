package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"
)

// readDotEnv merges KEY=VALUE pairs from a dotenv file into v. Keys are
// matched case-insensitively against the names Load asks for.
//
// Rules follow the dotenv format:
// - Empty lines and lines starting with # are ignored.
// - "export KEY=VALUE" is supported.
// - Values may be wrapped in single or double quotes; quotes are stripped.
// - Environment variables take precedence once AutomaticEnv is enabled.
func readDotEnv(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read dotenv file %s: %w", path, err)
	}
	return nil
}
