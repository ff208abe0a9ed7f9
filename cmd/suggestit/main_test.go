package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func findFlag(cmd *cli.Command, name string) cli.Flag {
	for _, f := range cmd.Flags {
		for _, n := range f.Names() {
			if n == name {
				return f
			}
		}
	}
	return nil
}

func TestCommands(t *testing.T) {
	app := newApp()

	for _, name := range []string{"serve", "import", "rank", "analytics"} {
		t.Run(name, func(t *testing.T) {
			cmd := findCommand(t, app, name)
			assert.NotNil(t, cmd.Action)
			assert.NotNil(t, findFlag(cmd, "config"), "every command takes --config")
			assert.NotNil(t, findFlag(cmd, "env-file"))
		})
	}
}

func TestImportCommandFlags(t *testing.T) {
	cmd := findCommand(t, newApp(), "import")

	file, ok := findFlag(cmd, "file").(*cli.StringFlag)
	require.True(t, ok)
	assert.True(t, file.Required)
	assert.Contains(t, file.Aliases, "f")

	batchSize, ok := findFlag(cmd, "batch-size").(*cli.IntFlag)
	require.True(t, ok)
	assert.Equal(t, 100, batchSize.Value)

	t.Run("missing file flag fails", func(t *testing.T) {
		err := newApp().Run([]string{"suggestit", "import"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file")
	})

	t.Run("invalid batch size fails", func(t *testing.T) {
		path := writeBatch(t, `{"items":[{"type":"category","content":{"name":"Plumbing"}}]}`)
		err := newApp().Run([]string{"suggestit", "import", "-f", path, "--batch-size", "0"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch-size must be greater than 0")
	})

	t.Run("unsupported batch format fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "batch.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		err := newApp().Run([]string{"suggestit", "import", "-f", path})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported batch format")
	})
}

func TestRankCommandFlags(t *testing.T) {
	cmd := findCommand(t, newApp(), "rank")

	query, ok := findFlag(cmd, "query").(*cli.StringFlag)
	require.True(t, ok)
	assert.True(t, query.Required)

	err := newApp().Run([]string{"suggestit", "rank"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query")
}

func TestAnalyticsCommandFormat(t *testing.T) {
	err := newApp().Run([]string{"suggestit", "analytics", "--format", "xml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func writeBatch(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestImportAndAnalyticsInMemory(t *testing.T) {
	t.Setenv("SUGGESTIT_IN_MEMORY", "true")

	path := writeBatch(t, `{"added_by":"ops","items":[
		{"type":"category","content":{"name":"Plumbing"}},
		{"type":"synonym","content":{"base":"plumber","terms":["pipe fitter"]}}
	]}`)
	require.NoError(t, newApp().Run([]string{"suggestit", "import", "-f", path, "--env-file", filepath.Join(t.TempDir(), "missing.env")}))
	require.NoError(t, newApp().Run([]string{"suggestit", "analytics", "--format", "csv"}))
}

func TestLoadConfigRejectsMissingFile(t *testing.T) {
	err := newApp().Run([]string{"suggestit", "analytics", "--config", filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
			t.Run(level, func(t *testing.T) {
				app := newApp()
				app.Commands = nil
				app.Action = func(*cli.Context) error { return nil }
				require.NoError(t, app.Run([]string{"suggestit", "--log-level", level}))
			})
		}
	})

	t.Run("json format", func(t *testing.T) {
		app := newApp()
		app.Commands = nil
		app.Action = func(*cli.Context) error { return nil }
		require.NoError(t, app.Run([]string{"suggestit", "--log-format", "json"}))
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		app := newApp()
		app.Commands = nil
		app.Action = func(*cli.Context) error { return nil }
		err := app.Run([]string{"suggestit", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		app := newApp()
		app.Commands = nil
		app.Action = func(c *cli.Context) error {
			assert.Equal(t, "debug", c.String("log-level"))
			return nil
		}
		require.NoError(t, app.Run([]string{"suggestit", "-l", "debug"}))
	})
}
