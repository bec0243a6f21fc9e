package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyFixture = `name: standup
rrule: FREQ=WEEKLY;BYDAY=MO,WE,FR;COUNT=5
dtstart: "2024-01-01T09:00:00"
timezone: America/New_York
`

const multiFixture = `metadata:
  name: monthly
  category: monthly
test_cases:
  - name: last_friday
    rrule: FREQ=MONTHLY;BYDAY=-1FR;COUNT=3
    dtstart: "2024-01-01T10:00:00Z"
  - name: month_end
    rrule: FREQ=MONTHLY;BYMONTHDAY=-1;COUNT=2
    dtstart: "2024-01-31"
`

const mismatchFixture = `metadata:
  name: daily
  category: daily
test_cases:
  - input:
      name: daily
      rrule: FREQ=DAILY;COUNT=3
      dtstart: "2024-01-01T09:00:00Z"
    expected_occurrences:
      - "2024-01-01T09:00:00Z"
      - "2024-01-02T09:00:00+00:00"
`

const calendar = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//rrulecheck//test//EN
BEGIN:VEVENT
UID:first-friday
DTSTAMP:20240101T000000Z
DTSTART;TZID=America/New_York:20240105T100000
RRULE:FREQ=MONTHLY;BYDAY=1FR;COUNT=2
SUMMARY:Review
END:VEVENT
BEGIN:VEVENT
UID:single
DTSTAMP:20240101T000000Z
DTSTART:20240201T120000Z
SUMMARY:Not recurring
END:VEVENT
BEGIN:VEVENT
UID:new-year
DTSTAMP:20240101T000000Z
DTSTART:20240101T120000Z
RRULE:FREQ=YEARLY;COUNT=2
SUMMARY:New year
END:VEVENT
END:VCALENDAR
`

// cli runs rrulecheck in a fresh temporary working directory. Golden files
// are resolved before the directory changes.
type cli struct {
	t      *testing.T
	golden *goldie.Goldie
	dir    string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	fixtureDir, err := filepath.Abs(filepath.Join("testdata", "golden"))
	require.NoError(t, err)
	g := goldie.New(t,
		goldie.WithFixtureDir(fixtureDir),
		goldie.WithNameSuffix(".golden"),
	)
	dir := t.TempDir()
	t.Chdir(dir)
	return &cli{t: t, golden: g, dir: dir}
}

func (c *cli) write(path, content string) {
	c.t.Helper()
	require.NoError(c.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(c.t, os.WriteFile(path, []byte(content), 0o644))
}

func (c *cli) run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestExpand(t *testing.T) {
	c := newCLI(t)

	code, out, stderr := c.run("expand", "--rrule", "FREQ=DAILY;COUNT=3", "--dtstart", "2024-01-01T09:00:00", "--tz", "America/New_York")
	require.Equal(t, 0, code, stderr)
	c.golden.Assert(t, "expand_daily", []byte(out))
}

func TestExpand_RangeAndLimit(t *testing.T) {
	c := newCLI(t)

	code, out, stderr := c.run("expand",
		"--rrule", "RRULE:FREQ=WEEKLY;BYDAY=TU,TH",
		"--dtstart", "2024-03-01T08:30:00",
		"--tz", "Europe/London",
		"--start", "2024-03-20", "--end", "2024-04-30",
		"--limit", "4")
	require.Equal(t, 0, code, stderr)
	c.golden.Assert(t, "expand_range_limit", []byte(out))
	assert.Contains(t, stderr, "expansion capped")
}

func TestExpand_ICS(t *testing.T) {
	c := newCLI(t)
	c.write("calendar.ics", strings.ReplaceAll(calendar, "\n", "\r\n"))

	code, out, stderr := c.run("expand", "--ics", "calendar.ics", "--engine", "reference")
	require.Equal(t, 0, code, stderr)
	c.golden.Assert(t, "expand_ics", []byte(out))
}

func TestExpand_Errors(t *testing.T) {
	c := newCLI(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unbounded rule", []string{"expand", "--rrule", "FREQ=DAILY", "--dtstart", "2024-01-01"}, "expansion needs COUNT"},
		{"bad rule", []string{"expand", "--rrule", "FREQ=DAILY;BYMONTH=13", "--dtstart", "2024-01-01"}, "BYMONTH"},
		{"missing anchor", []string{"expand", "--rrule", "FREQ=DAILY;COUNT=1"}, "--dtstart"},
		{"unknown engine", []string{"expand", "--engine", "quantum", "--rrule", "FREQ=DAILY;COUNT=1", "--dtstart", "2024-01-01"}, "unknown engine"},
		{"range needs both ends", []string{"expand", "--rrule", "FREQ=DAILY", "--dtstart", "2024-01-01", "--start", "2024-01-01"}, "end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, stderr := c.run(tt.args...)
			assert.Equal(t, 1, code)
			assert.Empty(t, out)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestGenerateAndVerify(t *testing.T) {
	c := newCLI(t)
	c.write(filepath.Join("in", "legacy.yaml"), legacyFixture)
	c.write(filepath.Join("in", "multi.yaml"), multiFixture)
	c.write(filepath.Join("in", "notes.txt"), "ignored")

	code, out, stderr := c.run("generate", "in", "out")
	require.Equal(t, 0, code, stderr)
	c.golden.Assert(t, "generate", []byte(out))

	code, out, stderr = c.run("verify", "out", "--junit", "report.xml")
	require.Equal(t, 0, code, stderr)
	c.golden.Assert(t, "verify", []byte(out))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile("report.xml"))
	root := doc.SelectElement("testsuites")
	require.NotNil(t, root)
	assert.Equal(t, "3", root.SelectAttrValue("tests", ""))
	assert.Equal(t, "0", root.SelectAttrValue("failures", ""))
}

func TestGenerate_ReferenceEngineAgrees(t *testing.T) {
	c := newCLI(t)
	c.write(filepath.Join("in", "legacy.yaml"), legacyFixture)
	c.write(filepath.Join("in", "multi.yaml"), multiFixture)

	code, _, stderr := c.run("generate", "in", "ref", "--engine", "reference", "--workers", "1")
	require.Equal(t, 0, code, stderr)

	code, _, stderr = c.run("verify", "ref", "--engine", "native", "--cache=false")
	assert.Equal(t, 0, code, stderr)
}

func TestGenerate_DefaultDirectoriesFromConfig(t *testing.T) {
	c := newCLI(t)
	c.write(filepath.Join("fixtures", "input", "legacy.yaml"), legacyFixture)
	c.write(".rrulecheck.yaml", "input_dir: fixtures/input\noutput_dir: fixtures/generated\n")

	code, _, stderr := c.run("generate")
	require.Equal(t, 0, code, stderr)
	_, err := os.Stat(filepath.Join("fixtures", "generated", "legacy.yaml"))
	assert.NoError(t, err)
}

func TestVerify_Mismatch(t *testing.T) {
	c := newCLI(t)
	c.write(filepath.Join("bad", "daily.yaml"), mismatchFixture)

	code, out, _ := c.run("verify", "bad")
	assert.Equal(t, 1, code)
	c.golden.Assert(t, "verify_mismatch", []byte(out))
}

func TestVerify_EmptyDirectory(t *testing.T) {
	c := newCLI(t)
	require.NoError(t, os.Mkdir("empty", 0o755))

	code, _, stderr := c.run("verify", "empty")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no fixture files")
}
