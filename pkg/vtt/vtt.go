// Package vtt parses WebVTT meeting transcripts into per-speaker segments,
// and formats those segments back into the speaker-grouped plain text the
// summarizer prompts on.
package vtt

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Segment is one spoken line: a speaker, their text, and the timestamp
// range it occupies.
type Segment struct {
	Timestamp    string
	EndTimestamp string
	Speaker      string
	Text         string
	StartSeconds float64
	EndSeconds   float64
}

var (
	timestampLineRe = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2}\.\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}\.\d{3})`)
	speakerTagRe    = regexp.MustCompile(`^<v\s+([^>]+)>(.+?)</v>\s*$`)
	speakerOpenRe   = regexp.MustCompile(`^<v\s+([^>]+)>(.+)$`)
)

// Parse turns raw VTT content into ordered segments. Lines that fail to
// parse are skipped rather than aborting the whole transcript — a single
// malformed cue shouldn't sink an otherwise-usable transcript.
func Parse(content string) ([]Segment, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, fmt.Errorf("vtt content is empty")
	}
	if !strings.HasPrefix(trimmed, "WEBVTT") {
		return nil, fmt.Errorf("invalid vtt: missing WEBVTT header")
	}

	lines := strings.Split(content, "\n")
	var segments []Segment

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "WEBVTT") || strings.HasPrefix(line, "NOTE") {
			continue
		}

		m := timestampLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		start, end := m[1], m[2]
		startSecs, errStart := timestampToSeconds(start)
		endSecs, errEnd := timestampToSeconds(end)
		if errStart != nil || errEnd != nil {
			continue
		}

		i++
		if i >= len(lines) {
			break
		}
		speaker, text := extractSpeakerAndText(strings.TrimSpace(lines[i]))
		if text == "" {
			continue
		}

		segments = append(segments, Segment{
			Timestamp:    start,
			EndTimestamp: end,
			Speaker:      speaker,
			Text:         text,
			StartSeconds: startSecs,
			EndSeconds:   endSecs,
		})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no valid segments found in vtt content")
	}
	return segments, nil
}

func timestampToSeconds(ts string) (float64, error) {
	parts := strings.SplitN(ts, ":", 3)
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed timestamp %q", ts)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	s, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}
	return float64(h*3600+m*60) + s, nil
}

// extractSpeakerAndText pulls the speaker name out of Teams' <v
// SpeakerName>text</v> cue format, falling back to "Unknown" when a line
// carries no speaker tag.
func extractSpeakerAndText(textLine string) (speaker, text string) {
	if m := speakerTagRe.FindStringSubmatch(textLine); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	if m := speakerOpenRe.FindStringSubmatch(textLine); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return "Unknown", textLine
}

// Metadata summarizes a parsed transcript for storage alongside the raw
// content (word/speaker counts on the Transcript row).
type Metadata struct {
	TotalDurationSeconds float64
	WordCount            int
	SpeakerCount         int
	Speakers             []string
	SegmentCount         int
}

// ExtractMetadata computes summary statistics over parsed segments.
func ExtractMetadata(segments []Segment) Metadata {
	if len(segments) == 0 {
		return Metadata{}
	}

	speakerSet := make(map[string]struct{})
	wordCount := 0
	for _, seg := range segments {
		speakerSet[seg.Speaker] = struct{}{}
		wordCount += len(strings.Fields(seg.Text))
	}

	speakers := make([]string, 0, len(speakerSet))
	for s := range speakerSet {
		speakers = append(speakers, s)
	}
	sort.Strings(speakers)

	return Metadata{
		TotalDurationSeconds: segments[len(segments)-1].EndSeconds,
		WordCount:            wordCount,
		SpeakerCount:         len(speakers),
		Speakers:             speakers,
		SegmentCount:         len(segments),
	}
}

// FormatForSummary renders segments as speaker-grouped plain text, merging
// consecutive lines from the same speaker into one paragraph.
func FormatForSummary(segments []Segment, includeTimestamps bool) string {
	if len(segments) == 0 {
		return ""
	}

	var lines []string
	currentSpeaker := ""

	for _, seg := range segments {
		if seg.Speaker != currentSpeaker || len(lines) == 0 {
			currentSpeaker = seg.Speaker
			if includeTimestamps {
				ts, _, _ := strings.Cut(seg.Timestamp, ".")
				lines = append(lines, fmt.Sprintf("[%s] %s: %s", ts, seg.Speaker, seg.Text))
			} else {
				lines = append(lines, fmt.Sprintf("%s: %s", seg.Speaker, seg.Text))
			}
			continue
		}
		lines[len(lines)-1] += " " + seg.Text
	}

	return strings.Join(lines, "\n")
}
