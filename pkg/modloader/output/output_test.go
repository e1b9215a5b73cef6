package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jamesainslie/modloader/pkg/modloader/mod"
	"github.com/jamesainslie/modloader/pkg/modloader/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResult() *Result {
	return &Result{
		ModsRoot: "/games/slw/mods",
		Game:     "Sonic Lost World",
		Patch:    "patched",
		Mods: []ModInfo{
			{Title: "Beta", Version: "2.0", Author: "b", Directory: "/games/slw/mods/Beta", Active: true, Priority: 0},
			{Title: "Alpha | Plus", Version: "1.0", Author: "a", Directory: "/games/slw/mods/Alpha", Active: true, Priority: 1},
			{Title: "Gamma", Version: "0.1", Directory: "/games/slw/mods/Gamma", Priority: -1},
		},
	}
}

func format(t *testing.T, name string, r *Result) string {
	t.Helper()
	f, err := Get(name)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, r))
	return buf.String()
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"pretty", "plain", "json", "jsonl", "yaml", "tsv", "csv", "markdown", "titles", "null", "template"} {
		assert.Contains(t, Available(), name)
	}

	_, err := Get("nope")
	assert.Error(t, err)

	r := NewRegistry()
	r.Register("x", func() Formatter { return &PlainFormatter{} })
	assert.Equal(t, []string{"x"}, r.Available())
}

func TestFromEntries(t *testing.T) {
	rows := FromEntries([]registry.Entry{
		{Mod: mod.Mod{Title: "Beta", Version: "2", RootDirectory: "/m/Beta", SaveFile: "b.sav"}, Active: true, Priority: 0},
		{Mod: mod.Mod{Title: "Alpha", RootDirectory: "/m/Alpha"}, Priority: -1},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, "Beta", rows[0].Title)
	assert.Equal(t, "/m/Beta", rows[0].Directory)
	assert.Equal(t, "b.sav", rows[0].SaveFile)
	assert.Equal(t, "1", rows[0].PriorityLabel())
	assert.Equal(t, "-", rows[1].PriorityLabel())
}

func TestModInfo_SetUsage(t *testing.T) {
	var m ModInfo
	m.SetUsage(1536, 3)
	assert.Equal(t, int64(1536), m.Size)
	assert.Equal(t, int64(3), m.Files)
	assert.Equal(t, "1.5 KiB", m.SizeHuman)
}

func TestJSONFormatter(t *testing.T) {
	out := format(t, "json", sampleResult())

	var doc struct {
		Mods []ModInfo `json:"mods"`
		Meta struct {
			ModsRoot   string `json:"mods_root"`
			TotalMods  int    `json:"total_mods"`
			ActiveMods int    `json:"active_mods"`
			Patch      string `json:"patch"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc.Mods, 3)
	assert.Equal(t, 3, doc.Meta.TotalMods)
	assert.Equal(t, 2, doc.Meta.ActiveMods)
	assert.Equal(t, "patched", doc.Meta.Patch)
	assert.Equal(t, -1, doc.Mods[2].Priority)
}

func TestJSONFormatter_EmptyModsIsArray(t *testing.T) {
	out := format(t, "json", &Result{ModsRoot: "/m"})
	assert.Contains(t, out, `"mods": []`)
}

func TestJSONLFormatter(t *testing.T) {
	out := format(t, "jsonl", sampleResult())
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)

	var first ModInfo
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "Beta", first.Title)
}

func TestYAMLFormatter(t *testing.T) {
	out := format(t, "yaml", sampleResult())

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	meta := doc["meta"].(map[string]any)
	assert.Equal(t, "/games/slw/mods", meta["mods_root"])
	assert.Equal(t, 2, meta["active_mods"])
}

func TestPlainFormatter(t *testing.T) {
	out := format(t, "plain", sampleResult())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "#"))
	assert.Contains(t, lines[1], "Beta")
	assert.True(t, strings.HasPrefix(lines[3], "-"))
}

func TestTSVFormatter(t *testing.T) {
	out := format(t, "tsv", sampleResult())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "PRIORITY\tACTIVE\tTITLE\tVERSION\tAUTHOR\tDIRECTORY", lines[0])
	assert.Equal(t, "1\ttrue\tBeta\t2.0\tb\t/games/slw/mods/Beta", lines[1])
}

func TestCSVFormatter(t *testing.T) {
	out := format(t, "csv", sampleResult())
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "Alpha | Plus", records[2][2])
	assert.Equal(t, "false", records[3][1])
}

func TestMarkdownFormatter(t *testing.T) {
	out := format(t, "markdown", sampleResult())
	assert.Contains(t, out, `| 2 | Alpha \| Plus | 1.0 | a |`)
}

func TestTitlesFormatter(t *testing.T) {
	assert.Equal(t, "Beta\nAlpha | Plus\n", format(t, "titles", sampleResult()))
}

func TestNullFormatter(t *testing.T) {
	out := format(t, "null", sampleResult())
	parts := strings.Split(out, "\x00")
	assert.Equal(t, []string{"/games/slw/mods/Beta", "/games/slw/mods/Alpha", "/games/slw/mods/Gamma", ""}, parts)
}

func TestTemplateFormatter(t *testing.T) {
	assert.Equal(t, "[x] Beta\n[x] Alpha | Plus\n[ ] Gamma\n", format(t, "template", sampleResult()))

	f := NewTemplateFormatter(`{{.ActiveCount}}/{{len .Mods}} {{bytes .TotalSize}}`)
	r := sampleResult()
	r.Mods[0].SetUsage(2048, 1)
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, r))
	assert.Equal(t, "2/3 2.0 KiB", buf.String())

	f.SetTemplate(`{{.Nope`)
	assert.Error(t, f.Format(&buf, r))
}

func TestPrettyFormatter(t *testing.T) {
	out := format(t, "pretty", sampleResult())
	for _, want := range []string{"/games/slw/mods", "Sonic Lost World", "patched", "Beta", "Alpha | Plus", "Gamma", "TITLE", "Active:"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "Beta"), strings.Index(out, "Gamma"))
	assert.NotContains(t, out, "SIZE")
}

func TestPrettyFormatter_SizesAndWarnings(t *testing.T) {
	r := sampleResult()
	r.Mods[0].SetUsage(5*1024*1024, 10)
	r.Warnings = []string{"skipped Broken: missing Title"}

	out := format(t, "pretty", r)
	assert.Contains(t, out, "SIZE")
	assert.Contains(t, out, "5.0 MiB")
	assert.Contains(t, out, "Warnings:")
	assert.Contains(t, out, "skipped Broken")
}

func TestPrettyFormatter_Empty(t *testing.T) {
	out := format(t, "pretty", &Result{ModsRoot: "/m"})
	assert.Contains(t, out, "No mods installed")
}
