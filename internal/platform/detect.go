package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "speech2symbol"

// JournalFileName is the append-only transcript file inside the data directory.
const JournalFileName = "saved_text.txt"

type Env struct {
	GOOS          string
	HomeDir       string
	XDGDataHome   string
	XDGConfigHome string
}

func CurrentEnv() (Env, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Env{}, fmt.Errorf("resolve user home: %w", err)
	}

	return Env{
		GOOS:          runtime.GOOS,
		HomeDir:       homeDir,
		XDGDataHome:   os.Getenv("XDG_DATA_HOME"),
		XDGConfigHome: os.Getenv("XDG_CONFIG_HOME"),
	}, nil
}

func DataDirFor(env Env) (string, error) {
	if env.HomeDir == "" {
		return "", errors.New("home directory is empty")
	}

	switch env.GOOS {
	case "linux":
		if env.XDGDataHome != "" {
			return filepath.Join(env.XDGDataHome, appDirName), nil
		}
		return filepath.Join(env.HomeDir, ".local", "share", appDirName), nil
	case "darwin":
		return filepath.Join(env.HomeDir, "Library", "Application Support", appDirName), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", env.GOOS)
	}
}

func ConfigDirFor(env Env) (string, error) {
	if env.HomeDir == "" {
		return "", errors.New("home directory is empty")
	}

	switch env.GOOS {
	case "linux":
		if env.XDGConfigHome != "" {
			return filepath.Join(env.XDGConfigHome, appDirName), nil
		}
		return filepath.Join(env.HomeDir, ".config", appDirName), nil
	case "darwin":
		return filepath.Join(env.HomeDir, "Library", "Application Support", appDirName), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", env.GOOS)
	}
}

func DefaultJournalPathFor(env Env) (string, error) {
	dataDir, err := DataDirFor(env)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, JournalFileName), nil
}

func RecordingDirFor(env Env) (string, error) {
	dataDir, err := DataDirFor(env)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "recordings"), nil
}

func DefaultConfigPathFor(env Env) (string, error) {
	configDir, err := ConfigDirFor(env)
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// ResolveJournalPath returns override when set and the per-user default otherwise.
func ResolveJournalPath(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	env, err := CurrentEnv()
	if err != nil {
		return "", err
	}
	return DefaultJournalPathFor(env)
}

func ResolveRecordingDir() (string, error) {
	env, err := CurrentEnv()
	if err != nil {
		return "", err
	}
	return RecordingDirFor(env)
}

func ResolveDefaultConfigPath() (string, error) {
	env, err := CurrentEnv()
	if err != nil {
		return "", err
	}
	return DefaultConfigPathFor(env)
}
