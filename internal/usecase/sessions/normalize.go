package sessions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/futig/dashboard-backend/internal/entity"
	"github.com/futig/dashboard-backend/internal/integration/upstream"
)

// The upstream populate payload arrives as a JSON object, a
// JSON-encoded string containing an object, or nothing at all.
// Everything is normalized here, once, so downstream code never
// re-parses defensively.

// ParsePopulate normalizes a raw populate payload into a QASet with
// the upstream document order preserved. Absent or null payloads
// normalize to nil; a payload that is not an object is an error.
func ParsePopulate(raw json.RawMessage) (*entity.QASet, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	// String-wrapped payloads are unquoted and parsed again.
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("unquote populate payload: %w", err)
		}
		inner = strings.TrimSpace(inner)
		if inner == "" {
			return nil, nil
		}
		return ParsePopulate(json.RawMessage(inner))
	}

	if raw[0] != '{' {
		return nil, fmt.Errorf("populate payload is not an object")
	}

	// Answers from a dry run correlate to questions by position, so
	// key order matters; a plain map decode would lose it. Walk the
	// object with a token decoder instead.
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode populate payload: %w", err)
	}

	set := &entity.QASet{Items: make(map[string]entity.QuestionAnswer)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode populate key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected populate key token %v", tok)
		}

		var qa entity.QuestionAnswer
		if err := dec.Decode(&qa); err != nil {
			return nil, fmt.Errorf("decode populate item %q: %w", key, err)
		}

		if _, exists := set.Items[key]; !exists {
			set.Keys = append(set.Keys, key)
		}
		set.Items[key] = qa
	}

	if len(set.Keys) == 0 {
		return nil, nil
	}

	return set, nil
}

var speakerLineRe = regexp.MustCompile(`(?i)^(Speaker [A-Z]):\s*(.*)$`)

// ParseTranscript normalizes a diarized transcription, which arrives
// either as a segment array or as a newline-separated string with
// "Speaker X:" prefixes.
func ParseTranscript(raw json.RawMessage) []entity.TranscriptSegment {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	if raw[0] == '[' {
		var segments []entity.TranscriptSegment
		if err := json.Unmarshal(raw, &segments); err != nil {
			return nil
		}
		return segments
	}

	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil
		}
		return parseTranscriptText(text)
	}

	return nil
}

func parseTranscriptText(text string) []entity.TranscriptSegment {
	var segments []entity.TranscriptSegment
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if line == "" {
			continue
		}
		if match := speakerLineRe.FindStringSubmatch(line); match != nil {
			segments = append(segments, entity.TranscriptSegment{Speaker: match[1], Text: match[2]})
		} else {
			segments = append(segments, entity.TranscriptSegment{Text: line})
		}
	}
	return segments
}

// Normalize converts one wire record into the typed session detail.
func Normalize(record upstream.SessionRecord) (entity.SessionDetail, error) {
	createdAt, err := parseCreatedAt(record.CreatedAt)
	if err != nil {
		return entity.SessionDetail{}, fmt.Errorf("parse created_at %q: %w", record.CreatedAt, err)
	}

	populate, err := ParsePopulate(record.JSONToPopulate)
	if err != nil {
		return entity.SessionDetail{}, fmt.Errorf("session %s workflow %s: %w", record.SessionID, record.WorkflowID, err)
	}

	detail := entity.SessionDetail{
		SessionID:      record.SessionID,
		WorkflowID:     record.WorkflowID,
		PatientName:    record.PatientName,
		PatientID:      record.PatientID,
		CreatedAt:      createdAt,
		SessionType:    record.SessionType,
		SessionStatus:  record.SessionStatus,
		WorkflowName:   record.WorkflowName,
		WorkflowStatus: record.WorkflowStatus,
		Transcript:     ParseTranscript(record.DiarizedTranscription),
		Populate:       populate,
	}
	if record.AudioLink != nil {
		detail.AudioLink = *record.AudioLink
	}

	return detail, nil
}

func parseCreatedAt(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}

// Dedup drops records sharing a (session_id, workflow_id) pair,
// keeping the first occurrence.
func Dedup(details []entity.SessionDetail) []entity.SessionDetail {
	seen := make(map[entity.SessionKey]struct{}, len(details))
	out := details[:0]
	for _, d := range details {
		key := d.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	return out
}
