package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"lunarcal/internal/config"
	appLog "lunarcal/internal/log"
	"lunarcal/internal/lunar"
)

func TestParseYMD(t *testing.T) {
	got, err := parseYMD("2020,-4,1")
	require.NoError(t, err)
	assert.Equal(t, [3]int{2020, -4, 1}, got)

	got, err = parseYMD(" 1989, 6 ,3 ")
	require.NoError(t, err)
	assert.Equal(t, [3]int{1989, 6, 3}, got)

	for _, bad := range []string{"", "2020,1", "2020,a,1", "1,2,3,4"} {
		_, err := parseYMD(bad)
		assert.Error(t, err, bad)
	}
}

func TestConverters(t *testing.T) {
	cal := lunar.NewLunarGo()
	logger := appLog.NewNop()

	assert.Equal(t, 0, convertLunarToSolar(cal, "2020,-4,1", logger))
	assert.Equal(t, 1, convertLunarToSolar(cal, "2021,-4,1", logger))
	assert.Equal(t, 2, convertLunarToSolar(cal, "x", logger))

	assert.Equal(t, 0, convertSolarToLunar(cal, "2020,1,25", logger))
	assert.Equal(t, 2, convertSolarToLunar(cal, "2021,2,30", logger))
}

func TestWriteExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.yaml")
	logger := appLog.NewNop()

	require.Equal(t, 0, writeExample(path, logger))
	f, err := config.Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Persons(), 2)

	assert.Equal(t, 1, writeExample(path, logger))
}

func TestHashWithCost(t *testing.T) {
	hash, err := hashWithCost("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	_, err = hashWithCost("", bcrypt.MinCost)
	assert.Error(t, err)
}

func TestHashPasswordFromPipe(t *testing.T) {
	in, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	_, err = in.WriteString("s3cret\n")
	require.NoError(t, err)
	_, err = in.Seek(0, 0)
	require.NoError(t, err)
	defer in.Close()

	var stdout, stderr bytes.Buffer
	code := hashPassword([]string{"-cost", "4"}, in, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	hash := strings.TrimSpace(stdout.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}
