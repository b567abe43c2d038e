package flow

import (
	"go.uber.org/zap"

	"surveybot/internal/models"
)

// Management operations on existing questionnaires. Authorization is
// creator-scoped: being on the admin list is necessary but not sufficient,
// the caller must also own the questionnaire.

// AuthorizeOwner loads a questionnaire after checking that the caller is a
// configured admin and its creator. Shared by every management entry point
// so the policy lives in exactly one place.
func (e *Engine) AuthorizeOwner(userID, questionnaireID int64) (*models.Questionnaire, error) {
	if !e.isAdmin(userID) {
		return nil, &AuthorizationError{Msg: "admin privileges required"}
	}
	q, err := e.store.GetQuestionnaire(questionnaireID)
	if err != nil {
		return nil, storeErr("get questionnaire", err)
	}
	if q == nil {
		return nil, preconditionf("questionnaire %d not found", questionnaireID)
	}
	if q.CreatedBy != userID {
		return nil, &AuthorizationError{Msg: "questionnaire owned by another admin"}
	}
	return q, nil
}

// Activate transitions Draft -> Active. Requires at least one question;
// the status never reverts afterwards.
func (e *Engine) Activate(userID, questionnaireID int64) (*models.Questionnaire, error) {
	q, err := e.AuthorizeOwner(userID, questionnaireID)
	if err != nil {
		return nil, err
	}
	if q.Status != models.StatusDraft {
		return nil, preconditionf("only draft questionnaires can be activated")
	}

	questions, err := e.store.ListQuestions(questionnaireID)
	if err != nil {
		return nil, storeErr("list questions", err)
	}
	if len(questions) == 0 {
		return nil, preconditionf("cannot activate questionnaire without questions")
	}

	if err := e.store.SetQuestionnaireStatus(questionnaireID, models.StatusActive); err != nil {
		return nil, storeErr("set status", err)
	}
	q.Status = models.StatusActive
	e.log.Info("questionnaire activated",
		zap.Int64("questionnaire_id", questionnaireID),
		zap.Int64("admin_id", userID))
	return q, nil
}

// Close transitions Active -> Closed.
func (e *Engine) Close(userID, questionnaireID int64) error {
	q, err := e.AuthorizeOwner(userID, questionnaireID)
	if err != nil {
		return err
	}
	if q.Status != models.StatusActive {
		return preconditionf("only active questionnaires can be closed")
	}
	if err := e.store.SetQuestionnaireStatus(questionnaireID, models.StatusClosed); err != nil {
		return storeErr("set status", err)
	}
	e.log.Info("questionnaire closed",
		zap.Int64("questionnaire_id", questionnaireID),
		zap.Int64("admin_id", userID))
	return nil
}

// Summary renders the response summary for one questionnaire.
func (e *Engine) Summary(userID, questionnaireID int64) (string, error) {
	q, err := e.AuthorizeOwner(userID, questionnaireID)
	if err != nil {
		return "", err
	}
	attempts, err := e.store.ListAttemptsWithAnswers(questionnaireID)
	if err != nil {
		return "", storeErr("list attempts", err)
	}
	return FormatSummary(q.Title, attempts), nil
}

// QuestionnaireCard is one questionnaire with the counts its list entry shows.
type QuestionnaireCard struct {
	Questionnaire models.Questionnaire
	QuestionCount int
	Stats         models.AttemptStats
}

// ListQuestionnaires returns the caller's own questionnaires with stats.
func (e *Engine) ListQuestionnaires(userID int64) ([]QuestionnaireCard, error) {
	if !e.isAdmin(userID) {
		return nil, &AuthorizationError{Msg: "admin privileges required"}
	}
	qs, err := e.store.ListQuestionnaires(userID)
	if err != nil {
		return nil, storeErr("list questionnaires", err)
	}

	cards := make([]QuestionnaireCard, 0, len(qs))
	for _, q := range qs {
		questions, err := e.store.ListQuestions(q.ID)
		if err != nil {
			return nil, storeErr("list questions", err)
		}
		stats, err := e.store.GetAttemptStats(q.ID)
		if err != nil {
			return nil, storeErr("get stats", err)
		}
		cards = append(cards, QuestionnaireCard{Questionnaire: q, QuestionCount: len(questions), Stats: stats})
	}
	return cards, nil
}

// ImportTemplate persists a whole questionnaire from a validated template
// in one pass: the questionnaire row first, then its questions in file
// order. The result stays in Draft like any chat-authored questionnaire.
func (e *Engine) ImportTemplate(userID int64, tpl *models.Template) (int64, error) {
	if !e.isAdmin(userID) {
		return 0, &AuthorizationError{Msg: "admin privileges required"}
	}
	if err := tpl.Validate(); err != nil {
		return 0, &ValidationError{Msg: err.Error()}
	}
	if e.limits.MaxQuestions > 0 && len(tpl.Questions) > e.limits.MaxQuestions {
		return 0, validationf("template has %d questions, limit is %d", len(tpl.Questions), e.limits.MaxQuestions)
	}
	if e.limits.MaxOptions > 0 {
		for i, q := range tpl.Questions {
			if len(q.Options) > e.limits.MaxOptions {
				return 0, validationf("question %d has %d options, limit is %d", i+1, len(q.Options), e.limits.MaxOptions)
			}
		}
	}

	id, err := e.store.CreateQuestionnaire(tpl.Title, tpl.Description, userID)
	if err != nil {
		return 0, storeErr("create questionnaire", err)
	}
	for _, tq := range tpl.Questions {
		question := models.Question{
			QuestionnaireID: id,
			Text:            tq.Text,
			Type:            tq.Type,
			IsRequired:      tq.IsRequired(),
		}
		if tq.Type.HasOptions() {
			question.Options = append(models.StringList{}, tq.Options...)
		}
		if _, err := e.store.AddQuestion(question); err != nil {
			return 0, storeErr("add question", err)
		}
	}

	e.log.Info("questionnaire imported from template",
		zap.Int64("questionnaire_id", id),
		zap.Int64("admin_id", userID),
		zap.Int("questions", len(tpl.Questions)))
	return id, nil
}
