package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is one loaded configuration document, already merged onto
// DefaultDocument.
type File struct {
	Path string
	Doc  map[string]any
}

// Pastebin configures the optional upload of the generated calendar.
type Pastebin struct {
	Enabled    bool
	BaseURL    string
	ManageURL  string
	Expiration string
}

// BasicAuth protects the HTTP server. PasswordHash is a bcrypt hash as
// printed by `lunarcal hash-password`.
type BasicAuth struct {
	Username     string
	PasswordHash string
}

// Serve holds the optional `serve` section.
type Serve struct {
	Listen    string
	BasicAuth *BasicAuth
}

// Parse decodes YAML and merges it onto the default document.
func Parse(data []byte) (map[string]any, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	doc := Merge(DefaultDocument(), raw)

	if _, ok := doc["global"].(map[string]any); !ok {
		return nil, fmt.Errorf("global: expected a mapping, got %T", doc["global"])
	}
	persons, ok := doc["persons"].([]any)
	if !ok {
		return nil, fmt.Errorf("persons: expected a list, got %T", doc["persons"])
	}
	for i, p := range persons {
		if _, ok := p.(map[string]any); !ok {
			return nil, fmt.Errorf("persons[%d]: expected a mapping, got %T", i, p)
		}
	}
	if v, ok := doc["pastebin"]; ok {
		if _, ok := v.(map[string]any); !ok {
			return nil, fmt.Errorf("pastebin: expected a mapping, got %T", v)
		}
	}
	return doc, nil
}

// Load reads and parses the YAML document at path. Unlike the init flow,
// a missing file is an error.
func Load(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &File{Path: path, Doc: doc}, nil
}

// Name is the calendar's file stem: "family.yaml" -> "family".
func (f *File) Name() string {
	base := filepath.Base(f.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPath is the .ics file written next to the configuration.
func (f *File) OutputPath() string {
	return strings.TrimSuffix(f.Path, filepath.Ext(f.Path)) + ".ics"
}

func (f *File) Global() map[string]any {
	g, _ := f.Doc["global"].(map[string]any)
	return g
}

// Persons returns the person entries in document order.
func (f *File) Persons() []map[string]any {
	list, _ := f.Doc["persons"].([]any)
	out := make([]map[string]any, 0, len(list))
	for _, p := range list {
		if m, ok := p.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *File) Pastebin() Pastebin {
	m, _ := f.Doc["pastebin"].(map[string]any)
	pb := Pastebin{BaseURL: DefaultPastebinURL}
	if b, ok := m["enabled"].(bool); ok {
		pb.Enabled = b
	}
	if s, ok := m["base_url"].(string); ok && s != "" {
		pb.BaseURL = s
	}
	if s, ok := m["manage_url"].(string); ok {
		pb.ManageURL = s
	}
	switch e := m["expiration"].(type) {
	case string:
		pb.Expiration = e
	case int:
		pb.Expiration = strconv.Itoa(e)
	}
	return pb
}

func (f *File) Serve() Serve {
	m, _ := f.Doc["serve"].(map[string]any)
	var s Serve
	if v, ok := m["listen"].(string); ok {
		s.Listen = v
	}
	if ba, ok := m["basic_auth"].(map[string]any); ok {
		user, _ := ba["username"].(string)
		hash, _ := ba["password_hash"].(string)
		if user != "" && hash != "" {
			s.BasicAuth = &BasicAuth{Username: user, PasswordHash: hash}
		}
	}
	return s
}

// ApplyEnv overrides pastebin and serve settings from LUNARCAL_* variables.
// Unset or empty variables leave the document untouched.
func (f *File) ApplyEnv(getenv func(string) string) {
	pb, _ := f.Doc["pastebin"].(map[string]any)
	if pb == nil {
		pb = map[string]any{}
		f.Doc["pastebin"] = pb
	}
	if v := getenv("LUNARCAL_PASTEBIN_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			pb["enabled"] = b
		}
	}
	for env, key := range map[string]string{
		"LUNARCAL_PASTEBIN_BASE_URL":   "base_url",
		"LUNARCAL_PASTEBIN_MANAGE_URL": "manage_url",
		"LUNARCAL_PASTEBIN_EXPIRATION": "expiration",
	} {
		if v := getenv(env); v != "" {
			pb[key] = v
		}
	}

	user := getenv("LUNARCAL_BASIC_AUTH_USERNAME")
	hash := getenv("LUNARCAL_BASIC_AUTH_PASSWORD_HASH")
	if user == "" && hash == "" {
		return
	}
	serve, _ := f.Doc["serve"].(map[string]any)
	if serve == nil {
		serve = map[string]any{}
		f.Doc["serve"] = serve
	}
	ba, _ := serve["basic_auth"].(map[string]any)
	if ba == nil {
		ba = map[string]any{}
		serve["basic_auth"] = ba
	}
	if user != "" {
		ba["username"] = user
	}
	if hash != "" {
		ba["password_hash"] = hash
	}
}

// Save writes doc as YAML to path.
//
//   - Ensures the parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Final permissions are 0600.
func Save(path string, doc map[string]any) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if doc == nil {
		return errors.New("config is nil")
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o600)
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it over path, leaving it with perm.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".lunarcal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
