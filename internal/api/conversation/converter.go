package conversation

import (
	"github.com/futig/omnistudy/internal/conversation"
	"github.com/futig/omnistudy/internal/entity"
	"github.com/futig/omnistudy/internal/quiz"
)

func toMessageDTO(m entity.Message) entity.MessageDTO {
	return entity.MessageDTO{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		Kind:      m.Kind,
		Quiz:      m.Quiz,
		Plan:      m.Plan,
		Summary:   m.Summary,
		Sources:   m.Sources,
		CreatedAt: m.CreatedAt,
	}
}

func toConversationDTO(s *conversation.Store) *entity.ConversationDTO {
	msgs := s.Messages()
	dtos := make([]entity.MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		dtos = append(dtos, toMessageDTO(m))
	}

	return &entity.ConversationDTO{
		ID:       s.ID(),
		Busy:     s.Busy(),
		Messages: dtos,
	}
}

// toQuizRunDTO exposes the current question of a run
func toQuizRunDTO(messageID string, run *quiz.Run) *entity.QuizRunDTO {
	state := run.Snapshot()

	dto := &entity.QuizRunDTO{
		MessageID:    messageID,
		Title:        run.Quiz().Title,
		Phase:        string(state.Phase()),
		CurrentIndex: state.CurrentIndex,
		Total:        state.Total,
		Selected:     state.Selected,
		Revealed:     state.Revealed,
		Score:        state.Score,
		Finished:     state.Finished,
	}

	if state.Finished {
		percentage := quiz.Percentage(state.Score, state.Total)
		dto.Percentage = &percentage
		return dto
	}

	question := run.Current()
	if !state.Revealed {
		// Hide the answer until the user commits
		question.CorrectAnswer = -1
		question.Explanation = ""
	}
	dto.Question = &question

	if state.Revealed && state.Selected != nil {
		correct := *state.Selected == question.CorrectAnswer
		dto.Correct = &correct
	}

	return dto
}
