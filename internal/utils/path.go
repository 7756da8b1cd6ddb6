package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// AppDirName is the directory name used under the platform config root.
const AppDirName = "nickserve"

// PathResolver finds a writable location for the config file.
type PathResolver struct {
	homeDir   string
	configDir string
	fallbacks []string
}

// NewPathResolver resolves the platform config directory for the current user.
func NewPathResolver() (*PathResolver, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	fallbacks := []string{
		filepath.Join(homeDir, "."+AppDirName),
		filepath.Join(os.TempDir(), AppDirName),
	}
	if execPath, err := os.Executable(); err == nil {
		fallbacks = append(fallbacks, filepath.Dir(execPath))
	}

	pr := &PathResolver{
		homeDir:   homeDir,
		configDir: platformConfigDir(homeDir),
		fallbacks: fallbacks,
	}
	log.Debugf("PathResolver initialized: home=%s, configDir=%s", homeDir, pr.configDir)
	return pr, nil
}

// platformConfigDir returns the appropriate config directory for the platform
func platformConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, AppDirName)
		}
		return filepath.Join(homeDir, ".config", AppDirName)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppDirName)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", AppDirName)
	default:
		return filepath.Join(homeDir, ".config", AppDirName)
	}
}

// GetConfigPath returns the full path for a config file, falling back to
// ~/.nickserve, the temp dir and finally the executable dir when the
// preferred directory is not writable.
func (pr *PathResolver) GetConfigPath(filename string) (string, error) {
	if CheckDirStatus(pr.configDir).Writable {
		return filepath.Join(pr.configDir, filename), nil
	}

	for _, dir := range pr.fallbacks {
		if CheckDirStatus(dir).Writable {
			path := filepath.Join(dir, filename)
			log.Warnf("Using fallback config location: %s", path)
			return path, nil
		}
	}

	tempPath := filepath.Join(os.TempDir(), filename)
	log.Warnf("Using temporary config file: %s", tempPath)
	return tempPath, nil
}

// GetConfigDir returns the config directory
func (pr *PathResolver) GetConfigDir() string {
	return pr.configDir
}
