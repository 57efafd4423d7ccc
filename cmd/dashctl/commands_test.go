package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ytget/progress-dashboard/internal/model"
)

// dashctl runs one invocation against the sqlite file at path
func dashctl(t *testing.T, path string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--storage", "sqlite", "--path", path}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func newDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "dashboard.db")
}

func exportWidgets(t *testing.T, path string) dashboardExport {
	t.Helper()
	out, err := dashctl(t, path, "export", "--format", "json")
	require.NoError(t, err)

	var doc dashboardExport
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	return doc
}

func ids(widgets []model.Widget) []int64 {
	out := make([]int64, len(widgets))
	for i, w := range widgets {
		out[i] = w.Project.ID
	}
	return out
}

func TestList_SeedsEmptyStorage(t *testing.T) {
	path := newDB(t)

	out, err := dashctl(t, path, "list")
	require.NoError(t, err)
	for _, name := range []string{"Project A", "Project B", "Project C"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "25/100")
}

func TestAdd_PersistsAcrossInvocations(t *testing.T) {
	path := newDB(t)

	out, err := dashctl(t, path, "add",
		"--name", "Project D", "--total", "20", "--completed", "10",
		"--start", "2024-01-01", "--end", "2024-06-01")
	require.NoError(t, err)

	doc := exportWidgets(t, path)
	require.Len(t, doc.Widgets, 4)
	added := doc.Widgets[3].Project
	assert.Equal(t, "Project D", added.Name)
	assert.Equal(t, strconv.FormatInt(added.ID, 10), strings.TrimSpace(out))
}

func TestAdd_Rejects(t *testing.T) {
	path := newDB(t)

	_, err := dashctl(t, path, "add",
		"--name", "project a", "--total", "5", "--completed", "1",
		"--start", "2024-01-01", "--end", "2024-02-01")
	assert.ErrorIs(t, err, model.ErrInvalidProject)

	_, err = dashctl(t, path, "add",
		"--name", "Project E", "--total", "5", "--completed", "9",
		"--start", "2024-01-01", "--end", "2024-02-01")
	assert.ErrorIs(t, err, model.ErrInvalidProject)

	assert.Len(t, exportWidgets(t, path).Widgets, 3)
}

func TestRemoveAndReorder(t *testing.T) {
	path := newDB(t)

	_, err := dashctl(t, path, "reorder", "3", "1", "2")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, ids(exportWidgets(t, path).Widgets))

	_, err = dashctl(t, path, "remove", "1")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, ids(exportWidgets(t, path).Widgets))

	// Unknown id leaves the list alone
	_, err = dashctl(t, path, "remove", "42")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, ids(exportWidgets(t, path).Widgets))
}

func TestReorder_RequiresPermutation(t *testing.T) {
	path := newDB(t)

	for _, args := range [][]string{
		{"reorder", "1", "2"},
		{"reorder", "1", "1", "2"},
		{"reorder", "1", "2", "9"},
		{"reorder", "x", "2", "3"},
	} {
		_, err := dashctl(t, path, args...)
		assert.Error(t, err, "args %v", args)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids(exportWidgets(t, path).Widgets))
}

func TestResizeAndSize(t *testing.T) {
	path := newDB(t)

	out, err := dashctl(t, path, "size", "2")
	require.NoError(t, err)
	assert.Equal(t, "no size recorded\n", out)

	_, err = dashctl(t, path, "resize", "2", "320", "180.5")
	require.NoError(t, err)

	out, err = dashctl(t, path, "size", "2")
	require.NoError(t, err)
	assert.Equal(t, "320x180.5\n", out)

	// Sizes outlive their widget
	_, err = dashctl(t, path, "remove", "2")
	require.NoError(t, err)
	out, err = dashctl(t, path, "size", "2")
	require.NoError(t, err)
	assert.Equal(t, "320x180.5\n", out)

	_, err = dashctl(t, path, "resize", "2", "0", "10")
	assert.Error(t, err)
}

func TestCheckName(t *testing.T) {
	path := newDB(t)

	out, err := dashctl(t, path, "check-name", "PROJECT B")
	require.NoError(t, err)
	assert.Equal(t, "taken\n", out)

	out, err = dashctl(t, path, "check-name", "Project Z")
	require.NoError(t, err)
	assert.Equal(t, "available\n", out)
}

func TestExport_YAML(t *testing.T) {
	path := newDB(t)

	_, err := dashctl(t, path, "resize", "1", "300", "200")
	require.NoError(t, err)

	out, err := dashctl(t, path, "export")
	require.NoError(t, err)

	var doc dashboardExport
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, model.SeedWidgets(), doc.Widgets)
	assert.Equal(t, map[int64]model.Size{1: {Width: 300, Height: 200}}, doc.Sizes)

	_, err = dashctl(t, path, "export", "--format", "xml")
	assert.Error(t, err)
}

func TestPermute(t *testing.T) {
	seed := model.SeedWidgets()

	got, err := permute(seed, []int64{2, 3, 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 1}, ids(got))
	assert.Equal(t, []int64{1, 2, 3}, ids(seed))
}
