package logx

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel("Error"))
	assert.Equal(t, INFO, ParseLevel("nonsense"))
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if sc.Text() != "" {
			lines = append(lines, sc.Text())
		}
	}
	return lines
}

func TestLoggerFiltersBelowConfiguredLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	log := New(Config{Level: "WARN", Output: path, JSONFormat: true, Component: "test"})

	log.Debugf("should be dropped")
	log.Infof("also dropped")
	log.Warnf("kept: %d", 1)
	log.Errorf("kept: %d", 2)

	lines := readLines(t, path)
	require.Len(t, lines, 2)

	var entry Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, "test", entry.Component)
	assert.Contains(t, entry.Message, "kept: 1")
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	base := New(Config{Level: "DEBUG", Output: path, JSONFormat: true})
	child := base.WithFields(map[string]interface{}{"run_id": "abc"})

	base.Infof("from base")
	child.Infof("from child")

	lines := readLines(t, path)
	require.Len(t, lines, 2)

	var baseEntry, childEntry Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &baseEntry))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &childEntry))

	assert.Nil(t, baseEntry.Fields)
	assert.Equal(t, "abc", childEntry.Fields["run_id"])
}

func TestWithComponentAndTraceIDTagEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	log := New(Config{Level: "DEBUG", Output: path, JSONFormat: true}).
		WithComponent("backtest").
		WithTraceID("trace-1")

	log.Infof("hello")

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	var entry Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "backtest", entry.Component)
	assert.Equal(t, "trace-1", entry.TraceID)
}

func TestTextFormatIncludesFieldsInline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	log := New(Config{Level: "DEBUG", Output: path, JSONFormat: false}).
		WithFields(map[string]interface{}{"symbol": "BTCUSDT"})

	log.Infof("signal generated")

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.True(t, strings.Contains(lines[0], "signal generated"))
	assert.True(t, strings.Contains(lines[0], "symbol=BTCUSDT"))
}

func TestWithErrorAttachesMessageField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	log := New(Config{Level: "DEBUG", Output: path, JSONFormat: true}).WithError(assertError{"boom"})

	log.Errorf("failed")

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	var entry Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "boom", entry.Fields["error"])
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }

func TestDefaultReturnsSingleton(t *testing.T) {
	first := Default()
	second := Default()
	assert.Same(t, first, second)
}
