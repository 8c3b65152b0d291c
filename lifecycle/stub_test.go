package lifecycle

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/livid/abi"
	"github.com/wippyai/livid/schema"
	"github.com/wippyai/livid/toolchain"
)

func TestGeneratedBlock(t *testing.T) {
	cols := schema.Columns{
		{Name: "a", Type: schema.Long, Width: schema.Auto()},
		{Name: "a", Type: schema.Text, Width: schema.Hidden()},
		{Name: `say "hi"`, Type: schema.Text, Width: schema.Fixed(8)},
	}
	block := GeneratedBlock(cols)
	assert.True(t, strings.HasPrefix(block, BeginMarker))
	assert.True(t, strings.HasSuffix(block, EndMarker+"\n"))
	assert.Contains(t, block, `COLUMN(a, "a", LONG, GRID_AUTO)`)
	assert.Contains(t, block, `COLUMN(a_2, "a", TEXT, GRID_HIDDEN)`)
	assert.Contains(t, block, `COLUMN(say__hi_, "say \"hi\"", TEXT, GRID_WIDTH(8))`)
}

func TestRenderStub(t *testing.T) {
	cols := schema.Columns{{Name: "x", Type: schema.Long}}

	fresh := string(RenderStub(nil, cols))
	assert.Contains(t, fresh, "#define COLUMN_LIST INPUT_COLUMNS")
	assert.Contains(t, fresh, "lv_grid(api, row)")

	user := "#include <math.h>\n" + GeneratedBlock(cols) + "\n/* mine */\nvoid run(struct api *api) {}\n"
	next := schema.Columns{{Name: "x", Type: schema.Long}, {Name: "y", Type: schema.Double}}
	got := string(RenderStub([]byte(user), next))
	assert.True(t, strings.HasPrefix(got, "#include <math.h>\n"+BeginMarker))
	assert.Contains(t, got, `COLUMN(y, "y", DOUBLE, GRID_AUTO)`)
	assert.True(t, strings.HasSuffix(got, "\n/* mine */\nvoid run(struct api *api) {}\n"))
	assert.Equal(t, 1, strings.Count(got, BeginMarker))

	bare := "void run(struct api *api) {}\n"
	got = string(RenderStub([]byte(bare), cols))
	assert.True(t, strings.HasPrefix(got, BeginMarker))
	assert.True(t, strings.HasSuffix(got, bare))
}

func TestWriteStub(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.c")
	cols := schema.Columns{{Name: "x", Type: schema.Long}}

	wrote, err := WriteStub(path, cols)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = WriteStub(path, cols)
	require.NoError(t, err)
	assert.False(t, wrote, "unchanged input leaves the file alone")

	_, err = WriteStub(filepath.Join(t.TempDir(), "missing", "script.c"), cols)
	assert.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "INPUT_COLUMNS")
}

func TestGeneratedBlock_Identifiers(t *testing.T) {
	block := GeneratedBlock(schema.NewColumns([]string{"id", "default", "long", "true", "x", "x", "x_2", "int"}))
	for _, want := range []string{
		`COLUMN(id, "id",`,
		`COLUMN(default_, "default",`,
		`COLUMN(long_, "long",`,
		`COLUMN(true_, "true",`,
		`COLUMN(x, "x",`,
		`COLUMN(x_2, "x",`,
		`COLUMN(x_2_2, "x_2",`,
		`COLUMN(int_, "int",`,
	} {
		assert.Contains(t, block, want)
	}
}

func TestRenderStub_Compiles(t *testing.T) {
	if _, err := exec.LookPath("cc"); err != nil {
		t.Skip("no C compiler available")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, abi.HeaderName), abi.Header, 0o644))

	tc, err := toolchain.New(toolchain.NativeCommand(), dir, nil)
	require.NoError(t, err)

	headers := [][]string{
		{"id", "default", "long", "true"},
		{"x", "x", "x_2", "int"},
		{"bool", "NULL", "stdin", "_empty", "_slot_x", "x", "INT64_MAX", "2019", "first name"},
	}
	for i, header := range headers {
		src := filepath.Join(dir, fmt.Sprintf("script%d.c", i))
		require.NoError(t, os.WriteFile(src, RenderStub(nil, schema.NewColumns(header)), 0o644))

		var diag bytes.Buffer
		err := tc.Compile(context.Background(), src, filepath.Join(dir, fmt.Sprintf("lib%d.so", i)), &diag)
		assert.NoError(t, err, "header %v:\n%s", header, diag.String())
	}
}
