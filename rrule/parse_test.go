package rrule

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var anchor2024 = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func TestParseWeekdayNum(t *testing.T) {
	tests := []struct {
		token string
		want  WeekdayNum
	}{
		{"MO", Day(MO)},
		{"su", Day(SU)},
		{"1MO", MO.Nth(1)},
		{"-1FR", FR.Nth(-1)},
		{"+2TU", TU.Nth(2)},
		{"53TH", TH.Nth(53)},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseWeekdayNum(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWeekdayNum_Errors(t *testing.T) {
	for _, token := range []string{"", "M", "XX", "1XX", "0MO", "-0MO", "54MO", "--1MO", "+-1MO", "1.5MO", "AMO"} {
		t.Run(token, func(t *testing.T) {
			_, err := ParseWeekdayNum(token)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrGrammar)

			var ge *GrammarError
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, token, ge.Token)
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	r, err := Parse("FREQ=WEEKLY", anchor2024)
	require.NoError(t, err)

	assert.Equal(t, Weekly, r.Freq)
	assert.Equal(t, 1, r.Interval)
	assert.True(t, r.Count.IsAbsent())
	assert.True(t, r.Until.IsAbsent())
	assert.Nil(t, r.ByWeekday)
	assert.Nil(t, r.ByMonthDay)
	assert.Nil(t, r.ByMonth)
	assert.Nil(t, r.ByWeekNo)
	assert.Nil(t, r.BySetPos)
	assert.Equal(t, MO, r.WeekStart)
	assert.True(t, r.Anchor.Equal(anchor2024))
	assert.False(t, r.Bounded())
}

func TestParse_AllParts(t *testing.T) {
	text := "FREQ=YEARLY;INTERVAL=2;COUNT=10;BYDAY=MO,-1FR;BYMONTHDAY=1,-1;BYMONTH=1,6;BYSETPOS=1,-1;WKST=SU"
	r, err := Parse(text, anchor2024)
	require.NoError(t, err)

	assert.Equal(t, Yearly, r.Freq)
	assert.Equal(t, 2, r.Interval)
	assert.Equal(t, mo.Some(10), r.Count)
	assert.Equal(t, []WeekdayNum{Day(MO), FR.Nth(-1)}, r.ByWeekday)
	assert.Equal(t, []int{1, -1}, r.ByMonthDay)
	assert.Equal(t, []int{1, 6}, r.ByMonth)
	assert.Equal(t, []int{1, -1}, r.BySetPos)
	assert.Equal(t, SU, r.WeekStart)
	assert.Equal(t, text, r.String())
}

func TestParse_Lenient(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Frequency
	}{
		{"missing FREQ defaults to DAILY", "COUNT=3", Daily},
		{"unknown FREQ defaults to DAILY", "FREQ=FORTNIGHTLY;COUNT=3", Daily},
		{"lower case value", "freq=monthly;count=3", Monthly},
		{"unknown keys are ignored", "FREQ=HOURLY;X-NAME=standup;BYHOUR=9;COUNT=3", Hourly},
		{"RRULE prefix", "RRULE:FREQ=SECONDLY;COUNT=3", Secondly},
		{"trailing separator", "FREQ=MINUTELY;COUNT=3;", Minutely},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse(tt.text, anchor2024)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Freq)
			assert.Equal(t, mo.Some(3), r.Count)
		})
	}
}

func TestParse_StrictFrequency(t *testing.T) {
	_, err := Parse("FREQ=FORTNIGHTLY", anchor2024, WithStrictFrequency())
	assert.ErrorIs(t, err, ErrGrammar)

	_, err = Parse("COUNT=2", anchor2024, WithStrictFrequency())
	assert.ErrorIs(t, err, ErrGrammar)

	r, err := Parse("FREQ=DAILY", anchor2024, WithStrictFrequency())
	require.NoError(t, err)
	assert.Equal(t, Daily, r.Freq)
}

func TestParse_GrammarErrors(t *testing.T) {
	tests := []struct {
		text string
		key  string
	}{
		{"FREQ=DAILY;COUNT", ""},
		{"FREQ=DAILY;COUNT=abc", "COUNT"},
		{"FREQ=DAILY;COUNT=-1", "COUNT"},
		{"FREQ=DAILY;INTERVAL=0", "INTERVAL"},
		{"FREQ=MONTHLY;BYMONTHDAY=1,,2", "BYMONTHDAY"},
		{"FREQ=MONTHLY;BYMONTHDAY=0", "BYMONTHDAY"},
		{"FREQ=MONTHLY;BYMONTHDAY=32", "BYMONTHDAY"},
		{"FREQ=YEARLY;BYMONTH=13", "BYMONTH"},
		{"FREQ=YEARLY;BYMONTH=-1", "BYMONTH"},
		{"FREQ=YEARLY;BYWEEKNO=54", "BYWEEKNO"},
		{"FREQ=MONTHLY;BYDAY=MO;BYSETPOS=0", "BYSETPOS"},
		{"FREQ=MONTHLY;BYDAY=MO,XX", "BYDAY"},
		{"FREQ=MONTHLY;BYDAY=0MO", "BYDAY"},
		{"FREQ=WEEKLY;WKST=XY", "WKST"},
		{"FREQ=DAILY;UNTIL=20240230", "UNTIL"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, err := Parse(tt.text, anchor2024)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrGrammar)

			var ge *GrammarError
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, tt.key, ge.Key)
		})
	}
}

func TestParse_SemanticErrors(t *testing.T) {
	tests := []string{
		"FREQ=MONTHLY;BYSETPOS=-1",
		"FREQ=DAILY;BYDAY=1MO;COUNT=3",
		"FREQ=WEEKLY;BYDAY=-1FR;COUNT=3",
		"FREQ=YEARLY;BYWEEKNO=20;BYDAY=1MO",
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			_, err := Parse(text, anchor2024)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSemantic)
			assert.NotErrorIs(t, err, ErrGrammar)
		})
	}
}

func TestParse_Until(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, ny)

	tests := []struct {
		name  string
		value string
		opts  []ParseOption
		want  string
	}{
		{"UTC date-time", "20240105T140000Z", nil, "2024-01-05T14:00:00+00:00"},
		{"floating date-time takes the rule zone", "20240105T090000", nil, "2024-01-05T09:00:00-05:00"},
		{"bare date is the end of that day", "20240105", nil, "2024-01-05T23:59:59-05:00"},
		{"ISO date", "2024-01-05", nil, "2024-01-05T23:59:59-05:00"},
		{"ISO date-time with offset", "2024-01-05T09:00:00+01:00", nil, "2024-01-05T09:00:00+01:00"},
		{"explicit rule zone", "20240105", []ParseOption{WithLocation(time.UTC)}, "2024-01-05T23:59:59+00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse("FREQ=DAILY;UNTIL="+tt.value, anchor, tt.opts...)
			require.NoError(t, err)
			until, ok := r.Until.Get()
			require.True(t, ok)
			assert.Equal(t, tt.want, Format(until))
		})
	}
}

func TestParse_TruncatesAnchor(t *testing.T) {
	r, err := Parse("FREQ=DAILY;COUNT=1", time.Date(2024, 1, 1, 9, 0, 0, 123456789, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, r.Anchor.Nanosecond())
}

func TestValidate_ProgrammaticRule(t *testing.T) {
	r := &Rule{Freq: Monthly, Interval: 1, ByMonthDay: []int{40}, Anchor: anchor2024}
	assert.ErrorIs(t, r.Validate(), ErrSemantic)

	r = &Rule{Freq: Monthly, Interval: 0, Anchor: anchor2024}
	assert.ErrorIs(t, r.Validate(), ErrSemantic)

	r = &Rule{Freq: Monthly, Interval: 1}
	assert.ErrorIs(t, r.Validate(), ErrSemantic)

	r = &Rule{Freq: Monthly, Interval: 1, ByWeekday: []WeekdayNum{MO.Nth(2)}, Anchor: anchor2024}
	assert.NoError(t, r.Validate())
}
