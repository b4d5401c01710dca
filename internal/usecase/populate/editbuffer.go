package populate

import (
	"strings"

	"github.com/futig/dashboard-backend/internal/entity"
)

// EditBuffer holds operator-edited replacement question texts, keyed
// by question key. It is scoped to one edit pass and never merged back
// into the session record except through Save & Populate.
type EditBuffer map[string]string

// NewEditBuffer builds a buffer from raw edits, dropping empty values.
// An edit that was set and then cleared falls back to the original
// text; it is not treated as "edited to empty".
func NewEditBuffer(edits map[string]string) EditBuffer {
	buf := make(EditBuffer, len(edits))
	for key, value := range edits {
		if value != "" {
			buf[key] = value
		}
	}
	return buf
}

// Set records an edit. Setting an empty value clears the edit.
func (b EditBuffer) Set(key, value string) {
	if value == "" {
		delete(b, key)
		return
	}
	b[key] = value
}

// Clear drops the edit for key, restoring the fallback text.
func (b EditBuffer) Clear(key string) {
	delete(b, key)
}

// Resolve returns the displayed question text for one record:
// the non-empty edit if present, else the trimmed processed question
// text if non-empty, else the original question text.
func (b EditBuffer) Resolve(key string, qa entity.QuestionAnswer) string {
	if edit, ok := b[key]; ok && edit != "" {
		return edit
	}
	if processed := strings.TrimSpace(qa.ProcessedQuestionText); processed != "" {
		return processed
	}
	return qa.QuestionText
}

// ResolveOrdered returns the full question list in the set's document
// order, edited-or-original. This is the commit-path payload shape.
func (b EditBuffer) ResolveOrdered(set *entity.QASet) []string {
	if set.Empty() {
		return nil
	}
	questions := make([]string, 0, len(set.Keys))
	for _, key := range set.Keys {
		questions = append(questions, b.Resolve(key, set.Items[key]))
	}
	return questions
}

// ResolveKeyed returns the questions as a key → text mapping. This is
// the dry-run payload shape.
func (b EditBuffer) ResolveKeyed(set *entity.QASet) map[string]string {
	if set.Empty() {
		return nil
	}
	questions := make(map[string]string, len(set.Keys))
	for _, key := range set.Keys {
		questions[key] = b.Resolve(key, set.Items[key])
	}
	return questions
}
