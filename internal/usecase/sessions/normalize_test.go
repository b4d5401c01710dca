package sessions

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/futig/dashboard-backend/internal/entity"
	"github.com/futig/dashboard-backend/internal/integration/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePopulate_ObjectPayload(t *testing.T) {
	raw := json.RawMessage(`{
		"chief_complaint": {"question_text": "Chief complaint?", "answer": "Headache", "type": "text"},
		"history": {"question_text": "History?", "processed_question_text": "Relevant history?"},
		"plan": {"question_text": "Plan?"}
	}`)

	set, err := ParsePopulate(raw)
	require.NoError(t, err)
	require.NotNil(t, set)

	// Document order, not lexical order.
	assert.Equal(t, []string{"chief_complaint", "history", "plan"}, set.Keys)

	qa, ok := set.Get("chief_complaint")
	require.True(t, ok)
	assert.Equal(t, "Headache", qa.Answer)
	assert.True(t, qa.Answered())

	qa, ok = set.Get("plan")
	require.True(t, ok)
	assert.False(t, qa.Answered())
}

func TestParsePopulate_StringWrappedPayload(t *testing.T) {
	inner := `{"q1": {"question_text": "Question one?"}}`
	raw, err := json.Marshal(inner)
	require.NoError(t, err)

	set, err := ParsePopulate(raw)
	require.NoError(t, err)
	require.NotNil(t, set)
	assert.Equal(t, []string{"q1"}, set.Keys)
}

func TestParsePopulate_AbsentVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"null", "null"},
		{"empty string", `""`},
		{"whitespace string", `"   "`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ParsePopulate(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Nil(t, set)
			assert.True(t, set.Empty())
		})
	}
}

func TestParsePopulate_RejectsNonObject(t *testing.T) {
	_, err := ParsePopulate(json.RawMessage(`[1, 2, 3]`))
	assert.Error(t, err)

	_, err = ParsePopulate(json.RawMessage(`42`))
	assert.Error(t, err)
}

func TestParsePopulate_KeyOrderSurvivesManyKeys(t *testing.T) {
	// With enough keys, map iteration order would almost surely differ
	// from document order if the decoder lost it.
	raw := `{`
	keys := []string{"k07", "k03", "k19", "k01", "k12", "k08", "k02", "k15", "k04", "k11", "k06", "k18", "k05", "k14", "k09"}
	for i, k := range keys {
		if i > 0 {
			raw += ","
		}
		raw += `"` + k + `": {"question_text": "q"}`
	}
	raw += `}`

	set, err := ParsePopulate(json.RawMessage(raw))
	require.NoError(t, err)
	assert.Equal(t, keys, set.Keys)
}

func TestParseTranscript(t *testing.T) {
	t.Run("segment array", func(t *testing.T) {
		raw := json.RawMessage(`[{"speaker": "Speaker A", "text": "Hello"}, {"speaker": "Speaker B", "text": "Hi"}]`)
		segments := ParseTranscript(raw)
		require.Len(t, segments, 2)
		assert.Equal(t, "Speaker A", segments[0].Speaker)
	})

	t.Run("speaker-prefixed string", func(t *testing.T) {
		raw, err := json.Marshal("Speaker A: How are you feeling?\nSpeaker B: Better this week.\nsome stray line")
		require.NoError(t, err)

		segments := ParseTranscript(raw)
		require.Len(t, segments, 3)
		assert.Equal(t, "Speaker A", segments[0].Speaker)
		assert.Equal(t, "How are you feeling?", segments[0].Text)
		assert.Empty(t, segments[2].Speaker)
		assert.Equal(t, "some stray line", segments[2].Text)
	})

	t.Run("absent", func(t *testing.T) {
		assert.Nil(t, ParseTranscript(nil))
		assert.Nil(t, ParseTranscript(json.RawMessage("null")))
	})
}

func TestNormalize(t *testing.T) {
	audio := "https://example.com/audio.mp3"
	record := upstream.SessionRecord{
		SessionID:      "sess-1",
		WorkflowID:     "wf-1",
		PatientName:    "Jane Roe",
		CreatedAt:      "2026-08-20T10:30:00Z",
		SessionType:    "intake",
		SessionStatus:  "completed",
		WorkflowName:   "Progress Note",
		JSONToPopulate: json.RawMessage(`{"q1": {"question_text": "Question?"}}`),
		AudioLink:      &audio,
	}

	detail, err := Normalize(record)
	require.NoError(t, err)

	assert.Equal(t, entity.SessionKey{SessionID: "sess-1", WorkflowID: "wf-1"}, detail.Key())
	assert.Equal(t, time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC), detail.CreatedAt)
	assert.Equal(t, audio, detail.AudioLink)
	require.NotNil(t, detail.Populate)
	assert.Equal(t, []string{"q1"}, detail.Populate.Keys)
}

func TestNormalize_BadTimestamp(t *testing.T) {
	_, err := Normalize(upstream.SessionRecord{
		SessionID:  "sess-1",
		WorkflowID: "wf-1",
		CreatedAt:  "yesterday",
	})
	assert.Error(t, err)
}

func TestDedup(t *testing.T) {
	details := []entity.SessionDetail{
		{SessionID: "s1", WorkflowID: "w1", PatientName: "first"},
		{SessionID: "s1", WorkflowID: "w2", PatientName: "different workflow"},
		{SessionID: "s1", WorkflowID: "w1", PatientName: "duplicate"},
		{SessionID: "s2", WorkflowID: "w1", PatientName: "other session"},
	}

	out := Dedup(details)
	require.Len(t, out, 3)

	// Same session with a different workflow is a distinct record; the
	// true duplicate keeps its first occurrence.
	assert.Equal(t, "first", out[0].PatientName)
	assert.Equal(t, "different workflow", out[1].PatientName)
	assert.Equal(t, "other session", out[2].PatientName)
}
