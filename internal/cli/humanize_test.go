package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelSelect = "SELECT products.name AS products_name, products.id AS products_id, " +
	"categories.name AS categories_name, categories.id AS categories_id " +
	"FROM products LEFT JOIN categories ON products.id_category = categories.id /* orm:model */"

func TestHumanize(t *testing.T) {
	want := "SELECT products.*, categories.* FROM products LEFT JOIN categories ON products.id_category = categories.id\n"

	t.Run("Argument", func(t *testing.T) {
		out, err := execute(t, "", "humanize", modelSelect)
		require.NoError(t, err)
		assert.Equal(t, want, out)
	})

	t.Run("Stdin", func(t *testing.T) {
		out, err := execute(t, modelSelect+"\n", "humanize")
		require.NoError(t, err)
		assert.Equal(t, want, out)
	})

	t.Run("Unmarked", func(t *testing.T) {
		out, err := execute(t, "", "humanize", "SELECT name FROM products")
		require.NoError(t, err)
		assert.Equal(t, "SELECT name FROM products\n", out)
	})

	t.Run("JSON", func(t *testing.T) {
		out, err := execute(t, "", "humanize", modelSelect, "--format", "json")
		require.NoError(t, err)
		var resp CLIResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, map[string]any{"sql": want[:len(want)-1]}, resp.Data)
	})

	t.Run("Empty", func(t *testing.T) {
		out, err := execute(t, "  \n", "humanize")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "Error [E002]: no statement given")
	})
}
