package vtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleVTT = `WEBVTT

00:00:00.000 --> 00:00:02.500
<v Alice Smith>Hello everyone, welcome to the meeting.</v>

00:00:02.500 --> 00:00:05.000
<v Alice Smith>Let's get started with the agenda.</v>

00:00:05.000 --> 00:00:07.250
<v Bob Jones>Sounds good, I have a few updates.</v>
`

func TestParse(t *testing.T) {
	segments, err := Parse(sampleVTT)
	require.NoError(t, err)
	require.Len(t, segments, 3)

	assert.Equal(t, "Alice Smith", segments[0].Speaker)
	assert.Equal(t, "Hello everyone, welcome to the meeting.", segments[0].Text)
	assert.Equal(t, 0.0, segments[0].StartSeconds)
	assert.Equal(t, 2.5, segments[0].EndSeconds)

	assert.Equal(t, "Bob Jones", segments[2].Speaker)
}

func TestParse_EmptyContent(t *testing.T) {
	_, err := Parse("   ")
	assert.Error(t, err)
}

func TestParse_MissingHeader(t *testing.T) {
	_, err := Parse("00:00:00.000 --> 00:00:01.000\nhello\n")
	assert.Error(t, err)
}

func TestParse_NoValidSegments(t *testing.T) {
	_, err := Parse("WEBVTT\n\nNOTE this is just a note\n")
	assert.Error(t, err)
}

func TestParse_UnknownSpeakerFallback(t *testing.T) {
	content := "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nJust plain text, no speaker tag\n"
	segments, err := Parse(content)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "Unknown", segments[0].Speaker)
	assert.Equal(t, "Just plain text, no speaker tag", segments[0].Text)
}

func TestParse_SkipsMalformedCue(t *testing.T) {
	content := "WEBVTT\n\nnot-a-timestamp\n<v Alice>hi</v>\n\n00:00:01.000 --> 00:00:02.000\n<v Alice>Hello</v>\n"
	segments, err := Parse(content)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "Hello", segments[0].Text)
}

func TestExtractMetadata(t *testing.T) {
	segments, err := Parse(sampleVTT)
	require.NoError(t, err)

	meta := ExtractMetadata(segments)
	assert.Equal(t, 7.25, meta.TotalDurationSeconds)
	assert.Equal(t, 2, meta.SpeakerCount)
	assert.Equal(t, 3, meta.SegmentCount)
	assert.Equal(t, []string{"Alice Smith", "Bob Jones"}, meta.Speakers)
	assert.Greater(t, meta.WordCount, 0)
}

func TestExtractMetadata_Empty(t *testing.T) {
	meta := ExtractMetadata(nil)
	assert.Equal(t, Metadata{}, meta)
}

func TestFormatForSummary_MergesConsecutiveSpeaker(t *testing.T) {
	segments, err := Parse(sampleVTT)
	require.NoError(t, err)

	out := FormatForSummary(segments, false)
	lines := []string{
		"Alice Smith: Hello everyone, welcome to the meeting. Let's get started with the agenda.",
		"Bob Jones: Sounds good, I have a few updates.",
	}
	assert.Equal(t, lines[0]+"\n"+lines[1], out)
}

func TestFormatForSummary_WithTimestamps(t *testing.T) {
	segments, err := Parse(sampleVTT)
	require.NoError(t, err)

	out := FormatForSummary(segments, true)
	assert.Contains(t, out, "[00:00:00] Alice Smith:")
}

func TestFormatForSummary_Empty(t *testing.T) {
	assert.Equal(t, "", FormatForSummary(nil, false))
}
