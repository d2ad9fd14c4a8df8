// ABOUTME: Standard filesystem paths for player2 configuration and credentials
// ABOUTME: Resolves ~/.player2/ for global and .player2/ for project-local paths

package config

import (
	"os"
	"path/filepath"
)

const (
	globalDirName  = ".player2"
	projectDirName = ".player2"

	// HomeEnv relocates the global directory, mainly for tests and CI.
	HomeEnv = "PLAYER2_HOME"
)

// GlobalDir returns the user-global config directory (~/.player2/).
func GlobalDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", globalDirName)
	}
	return filepath.Join(home, globalDirName)
}

// ProjectDir returns the project-local config directory (.player2/ in root).
func ProjectDir(projectRoot string) string {
	return filepath.Join(projectRoot, projectDirName)
}

// AuthFile returns the path to the stored credentials.
func AuthFile() string {
	return filepath.Join(GlobalDir(), "auth.json")
}

// GlobalConfigFile returns the path to the global config file.
func GlobalConfigFile() string {
	return filepath.Join(GlobalDir(), "config.yaml")
}

// ProjectConfigFile returns the path to the project-local config file.
func ProjectConfigFile(projectRoot string) string {
	return filepath.Join(ProjectDir(projectRoot), "config.yaml")
}

// PayloadDumpDir is the default directory for debug payload dumps.
func PayloadDumpDir() string {
	return filepath.Join(GlobalDir(), "payloads")
}

// EnsureDir creates a directory and all parents if they don't exist.
// Uses 0o700 since the directory holds credentials.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o700)
}
