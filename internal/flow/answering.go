package flow

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"surveybot/internal/models"
)

// Answering walks a participant through a fixed ordered question list for
// one attempt, validating each reply against the current question's type
// before advancing the cursor.

// StartAnswering begins (or restarts) an attempt via deep link or the
// restart button. Entry preconditions are re-checked on every call: the
// questionnaire must exist, be Active, and have at least one question.
// A restart resets the attempt record and the cursor to 0 and re-snapshots
// the question list; answers from the prior attempt are overwritten in
// place as the participant re-answers.
func (e *Engine) StartAnswering(userID, questionnaireID int64) (Reply, error) {
	unlock := e.states.Lock(userID)
	defer unlock()

	q, err := e.store.GetQuestionnaire(questionnaireID)
	if err != nil {
		return storeFailureReply(), storeErr("get questionnaire", err)
	}
	if q == nil {
		return Reply{Text: "❌ Survey not found."}, preconditionf("questionnaire %d not found", questionnaireID)
	}
	if q.Status != models.StatusActive {
		return Reply{Text: "❌ This survey is not currently available."},
			preconditionf("questionnaire %d is %s, not active", questionnaireID, q.Status)
	}
	questions, err := e.store.ListQuestions(questionnaireID)
	if err != nil {
		return storeFailureReply(), storeErr("list questions", err)
	}
	if len(questions) == 0 {
		return Reply{Text: "❌ This survey has no questions."},
			preconditionf("questionnaire %d has no questions", questionnaireID)
	}

	if err := e.store.StartAttempt(questionnaireID, userID); err != nil {
		return storeFailureReply(), storeErr("start attempt", err)
	}

	e.states.Set(userID, &State{
		Mode:            ModeAnswering,
		QuestionnaireID: questionnaireID,
		Questions:       questions,
		Cursor:          0,
	})
	e.log.Info("attempt started",
		zap.Int64("questionnaire_id", questionnaireID),
		zap.Int64("user_id", userID),
		zap.Int("questions", len(questions)))

	var b strings.Builder
	fmt.Fprintf(&b, "📋 %s\n\n", q.Title)
	fmt.Fprintf(&b, "📝 %s\n\n", orDefault(q.Description, "No description"))
	fmt.Fprintf(&b, "❓ Total Questions: %d\n\n", len(questions))
	b.WriteString("Let's begin!\n\n")
	b.WriteString(FormatQuestion(questions[0], 1, len(questions)))

	return Reply{Text: b.String(), Buttons: restartSurveyButton(questionnaireID)}, nil
}

// handleAnsweringText validates the reply against the current question,
// saves the answer and advances. On any validation failure the cursor does
// not move and the stored answer is untouched. The caller holds the user's
// lock.
func (e *Engine) handleAnsweringText(userID int64, state *State, text string) (Reply, error) {
	current := state.Questions[state.Cursor]
	answer := models.Answer{
		QuestionnaireID: state.QuestionnaireID,
		UserID:          userID,
		QuestionID:      current.ID,
	}

	switch current.Type {
	case models.SingleChoice:
		idx, err := parseSingleChoice(text, len(current.Options))
		if err != nil {
			return Reply{Text: err.Error(), Buttons: restartSurveyButton(state.QuestionnaireID)}, err
		}
		answer.SelectedOption = &idx

	case models.MultipleChoice:
		indices, err := parseMultipleChoice(text, len(current.Options))
		if err != nil {
			return Reply{Text: err.Error(), Buttons: restartSurveyButton(state.QuestionnaireID)}, err
		}
		answer.SelectedOptions = indices

	case models.TextAnswer:
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			err := validationf("❌ Answer cannot be empty. Please provide an answer.")
			return Reply{Text: err.Error(), Buttons: restartSurveyButton(state.QuestionnaireID)}, err
		}
		answer.Text = trimmed

	default:
		// A stored question with a type outside the closed set means the
		// row is corrupted; refuse rather than persist an empty answer.
		return answerFailureReply(state.QuestionnaireID),
			preconditionf("question %d has unknown type %q", current.ID, current.Type)
	}

	if err := e.store.SaveAnswer(answer); err != nil {
		return answerFailureReply(state.QuestionnaireID), storeErr("save answer", err)
	}

	state.Cursor++
	if state.Cursor >= len(state.Questions) {
		if err := e.store.CompleteAttempt(state.QuestionnaireID, userID); err != nil {
			// The answer is saved but completion failed; rewind so the
			// participant's next reply retries the completion path.
			state.Cursor--
			return answerFailureReply(state.QuestionnaireID), storeErr("complete attempt", err)
		}
		e.states.Clear(userID)
		e.log.Info("attempt completed",
			zap.Int64("questionnaire_id", state.QuestionnaireID),
			zap.Int64("user_id", userID))
		return Reply{Text: "🎉 **Survey Completed!**\n\n" +
			"Thank you for your participation! 🙏\n\n" +
			"Your responses have been recorded successfully."}, nil
	}

	next := state.Questions[state.Cursor]
	return Reply{
		Text:    FormatQuestion(next, state.Cursor+1, len(state.Questions)),
		Buttons: restartSurveyButton(state.QuestionnaireID),
	}, nil
}

func answerFailureReply(questionnaireID int64) Reply {
	return Reply{
		Text:    "❌ Error saving your answer. Please try again.",
		Buttons: restartSurveyButton(questionnaireID),
	}
}
