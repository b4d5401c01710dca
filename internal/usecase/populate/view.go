package populate

import (
	"strconv"

	"github.com/futig/dashboard-backend/internal/entity"
)

// AnswerView pairs each question key with the dry-run answer returned
// for it. Upstream answers carry a 1-based position, not a key, so the
// pairing goes through the document order of the submitted set.
type AnswerView struct {
	Key      string `json:"key"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Evidence string `json:"evidence,omitempty"`
}

// BuildAnswerView correlates dry-run answers back to question keys by
// position. Answers with an index outside the question range are
// dropped; questions without an answer appear with an empty one.
func BuildAnswerView(set *entity.QASet, edits map[string]string, answers []entity.PopulateAnswer) []AnswerView {
	if set.Empty() {
		return nil
	}

	buf := NewEditBuffer(edits)

	byPosition := make(map[int]entity.PopulateAnswer, len(answers))
	for _, a := range answers {
		pos, err := strconv.Atoi(a.Index)
		if err != nil || pos < 1 || pos > len(set.Keys) {
			continue
		}
		byPosition[pos] = a
	}

	views := make([]AnswerView, 0, len(set.Keys))
	for i, key := range set.Keys {
		view := AnswerView{
			Key:      key,
			Question: buf.Resolve(key, set.Items[key]),
		}
		if a, ok := byPosition[i+1]; ok {
			view.Answer = a.Answer
			view.Evidence = a.Evidence
		}
		views = append(views, view)
	}

	return views
}
