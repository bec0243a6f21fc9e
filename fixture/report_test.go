package fixture

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/rrulecheck/recurrence"
)

func sampleReport() *Report {
	r := newReport(ModeVerify, []string{"ok.yaml", "bad.yaml", "broken.yaml"})
	r.Duration = 1500 * time.Millisecond
	r.Files[0].Cases = []CaseResult{{Index: 0, Name: "daily", Occurrences: 3}}
	r.Files[1].Cases = []CaseResult{
		{Index: 0, Name: "weekly", Occurrences: 2},
		{
			Index: 1, Name: "monthly", Occurrences: 2,
			Mismatches: []Mismatch{{Index: 1, Kind: MismatchInstant, Expected: "2024-02-01T00:00:00+00:00", Got: "2024-03-01T00:00:00+00:00"}},
		},
		{
			Index: 2, Name: "yearly",
			Request: recurrence.Request{RRule: "FREQ=YEARLY;BYMONTH=13"},
			Err:     errors.New("invalid BYMONTH"),
		},
	}
	r.Files[2].Err = errors.New("unreadable")
	return r
}

func TestReport_Summary(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, Summary{Files: 3, FailedFiles: 2, Cases: 4, FailedCases: 2, Occurrences: 7}, r.Summary())
	assert.True(t, r.Failed())

	ok := newReport(ModeGenerate, []string{"a.yaml"})
	ok.Files[0].Cases = []CaseResult{{Name: "a"}}
	assert.False(t, ok.Failed())
}

func TestReport_WriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().WriteText(&buf))

	want := `ok   ok.yaml (1 cases)
FAIL bad.yaml
     case 1 "monthly": 1 mismatches
       #1 instant: expected 2024-02-01T00:00:00+00:00, got 2024-03-01T00:00:00+00:00
     case 2 "yearly": invalid BYMONTH
FAIL broken.yaml
     unreadable

verify: 1/3 files passed, 2/4 cases passed, 7 occurrences
`
	assert.Equal(t, want, buf.String())
}

func TestReport_WriteJUnit(t *testing.T) {
	r := sampleReport()
	var buf bytes.Buffer
	require.NoError(t, r.WriteJUnit(&buf))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(buf.Bytes()))

	root := doc.SelectElement("testsuites")
	require.NotNil(t, root)
	assert.Equal(t, "4", root.SelectAttrValue("tests", ""))
	assert.Equal(t, "2", root.SelectAttrValue("failures", ""))
	assert.Equal(t, "1.500", root.SelectAttrValue("time", ""))

	suites := root.SelectElements("testsuite")
	require.Len(t, suites, 3)

	bad := suites[1]
	assert.Equal(t, "bad.yaml", bad.SelectAttrValue("name", ""))
	assert.Equal(t, "3", bad.SelectAttrValue("tests", ""))
	assert.Equal(t, "1", bad.SelectAttrValue("failures", ""))
	assert.Equal(t, "1", bad.SelectAttrValue("errors", ""))

	prop := bad.FindElement("properties/property[@name='run_id']")
	require.NotNil(t, prop)
	assert.Equal(t, r.RunID.String(), prop.SelectAttrValue("value", ""))

	cases := bad.SelectElements("testcase")
	require.Len(t, cases, 3)
	assert.Nil(t, cases[0].SelectElement("failure"))
	failure := cases[1].SelectElement("failure")
	require.NotNil(t, failure)
	assert.Contains(t, failure.Text(), "#1 instant")
	errElem := cases[2].SelectElement("error")
	require.NotNil(t, errElem)
	assert.Equal(t, "invalid BYMONTH", errElem.SelectAttrValue("message", ""))
	assert.Equal(t, "FREQ=YEARLY;BYMONTH=13", errElem.Text())

	broken := suites[2]
	assert.Equal(t, "1", broken.SelectAttrValue("errors", ""))
	load := broken.FindElement("testcase[@name='load']/error")
	require.NotNil(t, load)
	assert.Equal(t, "unreadable", load.SelectAttrValue("message", ""))
}

func TestMismatch_String(t *testing.T) {
	assert.Equal(t, "#0 missing: expected a", Mismatch{Kind: MismatchMissing, Expected: "a"}.String())
	assert.Equal(t, "#2 extra: got b", Mismatch{Index: 2, Kind: MismatchExtra, Got: "b"}.String())
	assert.Equal(t, "#1 format: expected a, got b", Mismatch{Index: 1, Kind: MismatchFormat, Expected: "a", Got: "b"}.String())
}
