package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "PostgresSelect",
			args: []string{"products", "-d", "postgres", "--eq", "name=ipad", "--limit", "10"},
			want: "SELECT * FROM products WHERE name = $1 LIMIT $2\nargs: [ipad 10]\n",
		},
		{
			name: "MySQLUpdate",
			args: []string{"products", "-d", "mysql", "--set", "name=iphone", "--eq", "id=3"},
			want: "UPDATE products set name = ? WHERE id = ?\nargs: [iphone 3]\n",
		},
		{
			name: "Count",
			args: []string{"products", "-d", "sqlite", "--count", "-w", "price > 10"},
			want: "SELECT count(*) FROM products WHERE price > 10\n",
		},
		{
			name: "Columns",
			args: []string{"products", "-d", "postgres", "--alias", "p", "--column", "p.name,count(*)", "--group-by", "p.name", "--order", "p.name", "--distinct"},
			want: "SELECT DISTINCT p.name, count(*) FROM products AS p GROUP BY p.name ORDER BY p.name\n",
		},
		{
			name: "ForUpdate",
			args: []string{"products", "-d", "postgres", "--eq", "id=1", "--for-update"},
			want: "SELECT * FROM products WHERE id = $1 FOR UPDATE\nargs: [1]\n",
		},
		{
			name: "Delete",
			args: []string{"products", "-d", "postgres", "--delete", "--eq", "id_category=null"},
			want: "DELETE FROM products WHERE id_category IS NULL\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", append([]string{"render"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRender_JSON(t *testing.T) {
	out, err := execute(t, "", "render", "products", "-d", "postgres", "--eq", "name=ipad", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Status string       `json:"status"`
		Data   RenderResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "postgres", resp.Data.Dialect)
	assert.Equal(t, "SELECT * FROM products WHERE name = $1", resp.Data.SQL)
	assert.Equal(t, []any{"ipad"}, resp.Data.Args)
}

func TestRender_ConfigDialect(t *testing.T) {
	path := writeConfig(t, "driver: mysql\ndsn: root@/shop\n")
	out, err := execute(t, "", "render", "products", "--config", path, "--offset", "5")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM products LIMIT 18446744073709551615 OFFSET ?\nargs: [5]\n", out)
}

func TestRender_Errors(t *testing.T) {
	t.Run("NoDialect", func(t *testing.T) {
		out, err := execute(t, "", "render", "products", "--config", "/nonexistent/arbor.yaml")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "Error [E001]: no dialect")
	})

	t.Run("UnknownDialect", func(t *testing.T) {
		_, err := execute(t, "", "render", "products", "-d", "oracle")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("BadPair", func(t *testing.T) {
		out, err := execute(t, "", "render", "products", "-d", "sqlite", "--eq", "name")
		require.Error(t, err)
		assert.Contains(t, out, "Error [E002]: invalid statement")
		assert.Contains(t, err.Error(), `expected column=value, got "name"`)
	})

	t.Run("Exclusive", func(t *testing.T) {
		_, err := execute(t, "", "render", "products", "-d", "sqlite", "--count", "--delete")
		require.Error(t, err)
	})

	t.Run("MissingTable", func(t *testing.T) {
		_, err := execute(t, "", "render", "-d", "sqlite")
		require.Error(t, err)
	})
}
