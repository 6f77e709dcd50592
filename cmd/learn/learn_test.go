package learn_test

import (
	"bytes"
	"context"
	"os"
	"testing"

	"fjacquet/statement-csv/cmd/learn"
	"fjacquet/statement-csv/cmd/root"
	"fjacquet/statement-csv/internal/container"
	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	root.Init()
	root.Cmd.AddCommand(learn.Cmd)
	os.Exit(m.Run())
}

func execute(t *testing.T, mem *store.MemoryStore, args ...string) (string, error) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("STATEMENT_DATA_DIRECTORY", home)
	root.SetContainerOptions(container.WithLogger(logging.NewMockLogger()), container.WithStore(mem))
	t.Cleanup(func() { root.SetContainerOptions() })

	var out bytes.Buffer
	root.Cmd.SetOut(&out)
	root.Cmd.SetErr(&out)
	root.Cmd.SetArgs(args)
	err := root.Cmd.Execute()
	return out.String(), err
}

func TestLearnCommand_Metadata(t *testing.T) {
	assert.Equal(t, "learn", learn.Cmd.Use)
	assert.Contains(t, learn.Cmd.Long, "Groceries")
	assert.NotNil(t, learn.Cmd.RunE)
}

func TestLearnCommand(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		errContains string
		key         string
		category    string
	}{
		{
			name:     "records the entry",
			args:     []string{"learn", "-d", "Bizum  recibido", "-c", "Bizum", "--category", "Income", "--user", "ana"},
			key:      "bizum recibido bizum",
			category: "Income",
		},
		{
			name:        "unknown category",
			args:        []string{"learn", "-d", "Bizum", "-c", "", "--category", "Misc", "--user", "ana"},
			errContains: `unknown category "Misc"`,
		},
		{
			name:        "blank text",
			args:        []string{"learn", "-d", "   ", "-c", "", "--category", "Home", "--user", "ana"},
			errContains: "cannot both be empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemoryStore()
			out, err := execute(t, mem, tt.args...)
			if tt.errContains != "" {
				assert.ErrorContains(t, err, tt.errContains)
				learned, lerr := mem.GetLearnedMap(context.Background(), "ana")
				require.NoError(t, lerr)
				assert.Empty(t, learned)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.key)

			learned, err := mem.GetLearnedMap(context.Background(), "ana")
			require.NoError(t, err)
			assert.Equal(t, tt.category, learned[tt.key])
		})
	}
}
