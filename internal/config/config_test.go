package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
global:
  timezone: Asia/Shanghai
  reminders: [1, 7]
  summaries:
    cycle_days: "{name}: day {days}"
pastebin:
  enabled: true
  expiration: 3600
persons:
  - username: 张三
    startdate: 1989-06-03
  - username: 李四
    startdate: "2006-02-01"
    solar_birthday: true
`

func TestParseMergesOntoDefaults(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	global := doc["global"].(map[string]any)
	assert.Equal(t, []any{1, 7}, global["reminders"])
	assert.Equal(t, DefaultEventTime, global["event_time"])
	assert.Equal(t, DefaultInterval, global["interval"])

	summaries := global["summaries"].(map[string]any)
	assert.Equal(t, "{name}: day {days}", summaries["cycle_days"])
	assert.Equal(t, DefaultLunarBirthdaySummary, summaries["lunar_birthday"])
}

func TestParseRejectsMalformedDocuments(t *testing.T) {
	for name, src := range map[string]string{
		"persons not a list":   "persons: {a: 1}",
		"person not a mapping": "persons: [1]",
		"global not a mapping": "global: [1, 2]",
		"pastebin not mapping": "pastebin: true",
		"invalid yaml":         "global: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestLoadAccessors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "family.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "family", f.Name())
	assert.Equal(t, filepath.Join(filepath.Dir(path), "family.ics"), f.OutputPath())

	persons := f.Persons()
	require.Len(t, persons, 2)
	assert.Equal(t, "张三", persons[0]["username"])
	assert.Equal(t, "李四", persons[1]["username"])

	// Unquoted YAML dates still resolve.
	eff, err := Resolve(persons[0], f.Global())
	require.NoError(t, err)
	assert.Equal(t, 1989, eff.OriginDate.Year())

	pb := f.Pastebin()
	assert.True(t, pb.Enabled)
	assert.Equal(t, DefaultPastebinURL, pb.BaseURL)
	assert.Equal(t, "3600", pb.Expiration)
	assert.Empty(t, pb.ManageURL)
	assert.Nil(t, f.Serve().BasicAuth)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load("")
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	f := &File{Path: "family.yaml", Doc: doc}

	env := map[string]string{
		"LUNARCAL_PASTEBIN_ENABLED":         "false",
		"LUNARCAL_PASTEBIN_MANAGE_URL":      "https://paste.example/abc/secret",
		"LUNARCAL_BASIC_AUTH_USERNAME":      "admin",
		"LUNARCAL_BASIC_AUTH_PASSWORD_HASH": "$2a$10$hash",
	}
	f.ApplyEnv(func(k string) string { return env[k] })

	pb := f.Pastebin()
	assert.False(t, pb.Enabled)
	assert.Equal(t, "https://paste.example/abc/secret", pb.ManageURL)
	assert.Equal(t, "3600", pb.Expiration)

	s := f.Serve()
	require.NotNil(t, s.BasicAuth)
	assert.Equal(t, "admin", s.BasicAuth.Username)
	assert.Equal(t, "$2a$10$hash", s.BasicAuth.PasswordHash)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "example.yaml")
	require.NoError(t, Save(path, ExampleDocument()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.Persons(), 2)
	assert.Equal(t, DefaultCalendarName, f.Global()["calendar_name"])

	for _, p := range f.Persons() {
		_, err := Resolve(p, f.Global())
		assert.NoError(t, err)
	}
}

func TestSaveRejectsEmptyInput(t *testing.T) {
	assert.Error(t, Save("", map[string]any{}))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "x.yaml"), nil))
}
