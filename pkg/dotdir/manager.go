// Package dotdir locates the .revchat/ directory that holds config.toml and
// auth.toml.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the name of the revchat directory.
const DirName = ".revchat"

// Resolve returns the absolute path of the .revchat/ directory to use,
// creating it when missing. The first of these wins:
//  1. override, when not empty
//  2. ./.revchat/ in the working directory, when it exists
//  3. ~/.revchat/
func Resolve(override string) (string, error) {
	dir, err := pick(override)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// File resolves the directory and joins name onto it.
func File(override, name string) (string, error) {
	dir, err := Resolve(override)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func pick(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if local := filepath.Join(cwd, DirName); isDir(local) {
		return local, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
