// Package profiles reads and writes the shared AWS config and credentials
// files.
package profiles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"
)

const (
	// DefaultName is the profile that lives in the unprefixed [default] section.
	DefaultName = "default"

	envConfigFile      = "AWS_CONFIG_FILE"
	envCredentialsFile = "AWS_SHARED_CREDENTIALS_FILE"
)

// Paths locates the two shared files.
type Paths struct {
	Config      string
	Credentials string
}

// DefaultPaths returns ~/.aws/config and ~/.aws/credentials, honoring the
// AWS_CONFIG_FILE and AWS_SHARED_CREDENTIALS_FILE overrides.
func DefaultPaths() (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolve home directory: %w", err)
	}
	p := InDir(filepath.Join(home, ".aws"))
	if v := os.Getenv(envConfigFile); v != "" {
		p.Config = v
	}
	if v := os.Getenv(envCredentialsFile); v != "" {
		p.Credentials = v
	}
	return p, nil
}

// InDir returns the config and credentials paths inside dir.
func InDir(dir string) Paths {
	return Paths{
		Config:      filepath.Join(dir, "config"),
		Credentials: filepath.Join(dir, "credentials"),
	}
}

// Discover lists profile names in file order: config file first, then any
// names only present in the credentials file. Missing files are ignored.
func Discover(p Paths) ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}

	cfg, err := load(p.Config)
	if err != nil {
		return nil, err
	}
	for _, s := range cfg.Sections() {
		add(configProfile(s.Name()))
	}

	creds, err := load(p.Credentials)
	if err != nil {
		return nil, err
	}
	for _, s := range creds.Sections() {
		if s.Name() == ini.DefaultSection {
			continue
		}
		add(s.Name())
	}
	return names, nil
}

// configProfile maps a config section name to its profile name, or "" for
// sections that are not profiles.
func configProfile(section string) string {
	switch {
	case section == ini.DefaultSection:
		return ""
	case section == DefaultName:
		return DefaultName
	case strings.HasPrefix(section, "profile "):
		return strings.TrimSpace(strings.TrimPrefix(section, "profile "))
	default:
		// sso-session, services and unknown sections
		return ""
	}
}

func load(path string) (*ini.File, error) {
	f, err := ini.LoadSources(ini.LoadOptions{Loose: true}, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return f, nil
}

// Profile is one profile to write.
type Profile struct {
	Name            string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// WriteFiles writes profiles to the config and credentials files,
// replacing both. The files are created with 0600 permissions.
func WriteFiles(p Paths, profiles []Profile) error {
	cfg := ini.Empty()
	creds := ini.Empty()

	for _, pr := range profiles {
		section := "profile " + pr.Name
		if pr.Name == DefaultName {
			section = DefaultName
		}
		s := cfg.Section(section)
		s.Key("output").SetValue("json")
		if pr.Region != "" {
			s.Key("region").SetValue(pr.Region)
		}

		c := creds.Section(pr.Name)
		c.Key("aws_access_key_id").SetValue(pr.AccessKeyID)
		c.Key("aws_secret_access_key").SetValue(pr.SecretAccessKey)
		c.Key("aws_session_token").SetValue(pr.SessionToken)
	}

	if err := save(cfg, p.Config); err != nil {
		return err
	}
	return save(creds, p.Credentials)
}

func save(f *ini.File, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.WriteTo(out); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Close()
}
