package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultServerURL is used when no profile or --server is given.
const DefaultServerURL = "http://localhost:3001"

// Profile is a named Phosphor server.
type Profile struct {
	URL  string `yaml:"url"`
	Note string `yaml:"note,omitempty"`
}

// Profiles is the contents of ~/.phosphor/config.yaml.
type Profiles struct {
	Default string             `yaml:"default"`
	Servers map[string]Profile `yaml:"servers"`

	path string
}

// ProfilesPath returns ~/.phosphor/config.yaml.
func ProfilesPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".phosphor", "config.yaml"), nil
}

// OpenProfiles reads the profile file at path. A missing file yields a single
// "local" profile; nothing is written until Save.
func OpenProfiles(path string) (*Profiles, error) {
	p := &Profiles{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		p.Default = "local"
		p.Servers = map[string]Profile{"local": {URL: DefaultServerURL, Note: "Local Phosphor server"}}
		return p, nil
	case err != nil:
		return nil, err
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if p.Servers == nil {
		p.Servers = map[string]Profile{}
	}
	return p, nil
}

// Save writes the profiles back to their file.
func (p *Profiles) Save() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0600)
}

// Put adds or replaces a profile and saves. The first profile becomes the default.
func (p *Profiles) Put(name, rawURL, note string) error {
	if name == "" {
		return errors.New("profile name cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server URL %q", rawURL)
	}

	p.Servers[name] = Profile{URL: strings.TrimRight(rawURL, "/"), Note: note}
	if p.Default == "" {
		p.Default = name
	}
	return p.Save()
}

// Use makes name the default profile and saves.
func (p *Profiles) Use(name string) error {
	if _, ok := p.Servers[name]; !ok {
		return fmt.Errorf("profile '%s' not found", name)
	}
	p.Default = name
	return p.Save()
}

// Remove deletes a profile and saves. Removing the default clears it.
func (p *Profiles) Remove(name string) error {
	if _, ok := p.Servers[name]; !ok {
		return fmt.Errorf("profile '%s' not found", name)
	}
	delete(p.Servers, name)
	if p.Default == name {
		p.Default = ""
	}
	return p.Save()
}

// Names returns the profile names in alphabetical order.
func (p *Profiles) Names() []string {
	names := make([]string, 0, len(p.Servers))
	for name := range p.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve turns a --server value into a base URL. The value may be a URL or a
// profile name; empty selects the default profile.
func (p *Profiles) Resolve(server string) (string, error) {
	if strings.Contains(server, "://") {
		return strings.TrimRight(server, "/"), nil
	}
	name := server
	if name == "" {
		name = p.Default
	}
	profile, ok := p.Servers[name]
	if !ok {
		return "", fmt.Errorf("profile '%s' not found", name)
	}
	return strings.TrimRight(profile.URL, "/"), nil
}

// ResolveServer resolves --server against ~/.phosphor/config.yaml.
// An explicit URL never touches the profile file.
func ResolveServer(server string) (string, error) {
	if strings.Contains(server, "://") {
		return strings.TrimRight(server, "/"), nil
	}
	profiles, err := loadUserProfiles()
	if err != nil {
		if server == "" {
			return DefaultServerURL, nil
		}
		return "", fmt.Errorf("failed to load CLI profiles: %w", err)
	}
	return profiles.Resolve(server)
}

func loadUserProfiles() (*Profiles, error) {
	path, err := ProfilesPath()
	if err != nil {
		return nil, err
	}
	return OpenProfiles(path)
}
