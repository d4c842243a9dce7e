package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/mboxsearch/ai"
	"github.com/poiesic/mboxsearch/ai/mock"
)

const fixture = "../../storage/mboxfile/testdata/three.mbox"

func useMockProvider(t *testing.T) {
	t.Helper()
	original := newProvider
	newProvider = func(*ai.Config) (ai.AIProvider, error) {
		return mock.NewMockProvider(), nil
	}
	t.Cleanup(func() { newProvider = original })
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"mboxsearch", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestSearchCommand(t *testing.T) {
	useMockProvider(t)

	t.Run("prints score and message lines", func(t *testing.T) {
		out, err := run(t, "--workers", "2", "-k", "2", "meeting notes", fixture)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 4)
		assert.True(t, strings.HasPrefix(lines[0], "Score : "))
		assert.True(t, strings.HasPrefix(lines[1], "#"))
		assert.True(t, strings.HasPrefix(lines[2], "Score : "))
	})

	t.Run("defaults to five results", func(t *testing.T) {
		out, err := run(t, "anything", fixture)
		require.NoError(t, err)
		assert.Equal(t, 3, strings.Count(out, "Score : "), "fixture holds three messages")
	})

	t.Run("writes metrics file", func(t *testing.T) {
		metricsFile := filepath.Join(t.TempDir(), "mboxsearch.prom")
		_, err := run(t, "--metrics-file", metricsFile, "query", fixture)
		require.NoError(t, err)

		data, err := os.ReadFile(metricsFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "mboxsearch_index_messages_indexed_total 3")
		assert.Contains(t, string(data), `mboxsearch_search_queries_total{result="ok"} 1`)
	})

	t.Run("progress goes to the error writer", func(t *testing.T) {
		out, err := run(t, "--progress", "query", fixture)
		require.NoError(t, err)
		assert.Contains(t, out, "Progress: 3/3")
	})
}

func TestSearchCommandValidation(t *testing.T) {
	useMockProvider(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing arguments", []string{"only-query"}, "expected <query> <mbox-file>"},
		{"bad batch size", []string{"--batch-size", "0", "q", fixture}, "batch-size"},
		{"bad retries", []string{"--max-retries", "0", "q", fixture}, "max-retries"},
		{"negative workers", []string{"--workers", "-1", "q", fixture}, "workers"},
		{"missing archive", []string{"q", filepath.Join(t.TempDir(), "none.mbox")}, "failed to open archive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSetupLogger(t *testing.T) {
	t.Run("rejects unknown level", func(t *testing.T) {
		_, err := run(t, "--log-level", "verbose", "q", fixture)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
