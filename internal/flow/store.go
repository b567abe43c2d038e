package flow

import "surveybot/internal/models"

// Store is the persistence contract the state machines depend on. The
// gorm-backed implementation lives in internal/repository; tests drive the
// engine with an in-memory stub.
type Store interface {
	UpsertUser(user models.User) error

	CreateQuestionnaire(title, description string, ownerID int64) (int64, error)
	GetQuestionnaire(id int64) (*models.Questionnaire, error)
	ListQuestionnaires(ownerID int64) ([]models.Questionnaire, error)
	SetQuestionnaireStatus(id int64, status models.QuestionnaireStatus) error

	// AddQuestion assigns the next dense 1-based position and returns the
	// new question's ID.
	AddQuestion(question models.Question) (int64, error)
	// ListQuestions returns questions ordered by position.
	ListQuestions(questionnaireID int64) ([]models.Question, error)

	// StartAttempt creates or resets the attempt record for the pair.
	StartAttempt(questionnaireID, userID int64) error
	// SaveAnswer upserts; re-answering a question overwrites the prior row.
	SaveAnswer(answer models.Answer) error
	CompleteAttempt(questionnaireID, userID int64) error

	GetAttemptStats(questionnaireID int64) (models.AttemptStats, error)
	ListAttemptsWithAnswers(questionnaireID int64) ([]models.AttemptWithAnswers, error)
}
