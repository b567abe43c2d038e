package flow

import (
	"errors"
	"time"

	"surveybot/internal/models"
)

// memStore is the in-memory Store stub the engine tests run against.
// Setting failOp makes the named operation fail, for StoreError paths.
type memStore struct {
	questionnaires map[int64]*models.Questionnaire
	questions      map[int64][]models.Question
	attempts       map[[2]int64]*models.Attempt
	answers        map[[3]int64]models.Answer
	users          map[int64]models.User
	nextID         int64
	failOp         string
}

func newMemStore() *memStore {
	return &memStore{
		questionnaires: make(map[int64]*models.Questionnaire),
		questions:      make(map[int64][]models.Question),
		attempts:       make(map[[2]int64]*models.Attempt),
		answers:        make(map[[3]int64]models.Answer),
		users:          make(map[int64]models.User),
	}
}

var errBoom = errors.New("boom")

func (s *memStore) fail(op string) bool { return s.failOp == op }

func (s *memStore) UpsertUser(user models.User) error {
	if s.fail("UpsertUser") {
		return errBoom
	}
	s.users[user.ID] = user
	return nil
}

func (s *memStore) CreateQuestionnaire(title, description string, ownerID int64) (int64, error) {
	if s.fail("CreateQuestionnaire") {
		return 0, errBoom
	}
	s.nextID++
	s.questionnaires[s.nextID] = &models.Questionnaire{
		ID:          s.nextID,
		Title:       title,
		Description: description,
		CreatedBy:   ownerID,
		Status:      models.StatusDraft,
		CreatedAt:   time.Now(),
	}
	return s.nextID, nil
}

func (s *memStore) GetQuestionnaire(id int64) (*models.Questionnaire, error) {
	if s.fail("GetQuestionnaire") {
		return nil, errBoom
	}
	q, ok := s.questionnaires[id]
	if !ok {
		return nil, nil
	}
	cp := *q
	return &cp, nil
}

func (s *memStore) ListQuestionnaires(ownerID int64) ([]models.Questionnaire, error) {
	if s.fail("ListQuestionnaires") {
		return nil, errBoom
	}
	var out []models.Questionnaire
	for _, q := range s.questionnaires {
		if q.CreatedBy == ownerID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (s *memStore) SetQuestionnaireStatus(id int64, status models.QuestionnaireStatus) error {
	if s.fail("SetQuestionnaireStatus") {
		return errBoom
	}
	q, ok := s.questionnaires[id]
	if !ok {
		return errors.New("not found")
	}
	q.Status = status
	return nil
}

func (s *memStore) AddQuestion(question models.Question) (int64, error) {
	if s.fail("AddQuestion") {
		return 0, errBoom
	}
	s.nextID++
	question.ID = s.nextID
	question.Position = len(s.questions[question.QuestionnaireID]) + 1
	s.questions[question.QuestionnaireID] = append(s.questions[question.QuestionnaireID], question)
	return question.ID, nil
}

func (s *memStore) ListQuestions(questionnaireID int64) ([]models.Question, error) {
	if s.fail("ListQuestions") {
		return nil, errBoom
	}
	return append([]models.Question(nil), s.questions[questionnaireID]...), nil
}

func (s *memStore) StartAttempt(questionnaireID, userID int64) error {
	if s.fail("StartAttempt") {
		return errBoom
	}
	s.attempts[[2]int64{questionnaireID, userID}] = &models.Attempt{
		QuestionnaireID: questionnaireID,
		UserID:          userID,
		StartedAt:       time.Now(),
	}
	return nil
}

func (s *memStore) SaveAnswer(answer models.Answer) error {
	if s.fail("SaveAnswer") {
		return errBoom
	}
	s.answers[[3]int64{answer.QuestionnaireID, answer.UserID, answer.QuestionID}] = answer
	return nil
}

func (s *memStore) CompleteAttempt(questionnaireID, userID int64) error {
	if s.fail("CompleteAttempt") {
		return errBoom
	}
	a, ok := s.attempts[[2]int64{questionnaireID, userID}]
	if !ok {
		return errors.New("no attempt")
	}
	now := time.Now()
	a.IsCompleted = true
	a.CompletedAt = &now
	return nil
}

func (s *memStore) GetAttemptStats(questionnaireID int64) (models.AttemptStats, error) {
	if s.fail("GetAttemptStats") {
		return models.AttemptStats{}, errBoom
	}
	var stats models.AttemptStats
	for key, a := range s.attempts {
		if key[0] != questionnaireID {
			continue
		}
		stats.Started++
		if a.IsCompleted {
			stats.Completed++
		}
	}
	return stats, nil
}

func (s *memStore) ListAttemptsWithAnswers(questionnaireID int64) ([]models.AttemptWithAnswers, error) {
	if s.fail("ListAttemptsWithAnswers") {
		return nil, errBoom
	}
	var out []models.AttemptWithAnswers
	for key, a := range s.attempts {
		if key[0] != questionnaireID {
			continue
		}
		item := models.AttemptWithAnswers{
			User:        s.users[key[1]],
			StartedAt:   a.StartedAt,
			CompletedAt: a.CompletedAt,
			IsCompleted: a.IsCompleted,
			Answers:     make(map[int64]models.Answer),
		}
		for akey, ans := range s.answers {
			if akey[0] == questionnaireID && akey[1] == key[1] {
				item.Answers[akey[2]] = ans
			}
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *memStore) answer(questionnaireID, userID, questionID int64) (models.Answer, bool) {
	a, ok := s.answers[[3]int64{questionnaireID, userID, questionID}]
	return a, ok
}
