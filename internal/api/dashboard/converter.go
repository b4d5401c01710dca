package dashboard

import "github.com/futig/dashboard-backend/internal/entity"

// toSessionDTO converts a normalized session record to its API shape,
// flattening the Q&A set into a list in document order.
func toSessionDTO(detail *entity.SessionDetail) *entity.SessionDTO {
	dto := &entity.SessionDTO{
		SessionID:      detail.SessionID,
		WorkflowID:     detail.WorkflowID,
		PatientName:    detail.PatientName,
		PatientID:      detail.PatientID,
		CreatedAt:      detail.CreatedAt,
		SessionType:    detail.SessionType,
		SessionStatus:  detail.SessionStatus,
		WorkflowName:   detail.WorkflowName,
		WorkflowStatus: detail.WorkflowStatus,
		AudioAvailable: detail.AudioLink != "",
		AudioLink:      detail.AudioLink,
		Transcript:     detail.Transcript,
		Questions:      []entity.QuestionDTO{},
		QAMetrics:      detail.Populate.Metrics(),
	}

	if !detail.Populate.Empty() {
		for _, key := range detail.Populate.Keys {
			qa := detail.Populate.Items[key]
			dto.Questions = append(dto.Questions, entity.QuestionDTO{
				Key:                   key,
				QuestionText:          qa.QuestionText,
				ProcessedQuestionText: qa.ProcessedQuestionText,
				Answer:                qa.Answer,
				Evidence:              qa.Evidence,
				Type:                  qa.Type,
				Answered:              qa.Answered(),
			})
		}
	}

	return dto
}

func toSessionDTOs(details []entity.SessionDetail) []*entity.SessionDTO {
	dtos := make([]*entity.SessionDTO, 0, len(details))
	for i := range details {
		dtos = append(dtos, toSessionDTO(&details[i]))
	}
	return dtos
}
