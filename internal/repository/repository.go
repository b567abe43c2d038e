package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"surveybot/internal/models"
)

// Repository is the GORM-backed persistence layer. It satisfies the flow
// package's Store interface.
type Repository struct {
	db *gorm.DB
}

// New wraps a live database handle.
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertUser inserts the user or refreshes the mutable profile fields, so
// the stored identity tracks Telegram renames.
func (r *Repository) UpsertUser(user models.User) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name", "is_admin"}),
	}).Create(&user).Error
}

func (r *Repository) CreateQuestionnaire(title, description string, ownerID int64) (int64, error) {
	q := models.Questionnaire{
		Title:       title,
		Description: description,
		CreatedBy:   ownerID,
		Status:      models.StatusDraft,
	}
	if err := r.db.Create(&q).Error; err != nil {
		return 0, err
	}
	return q.ID, nil
}

// GetQuestionnaire returns nil, nil when the row does not exist; callers
// turn that into their own precondition error.
func (r *Repository) GetQuestionnaire(id int64) (*models.Questionnaire, error) {
	var q models.Questionnaire
	err := r.db.First(&q, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *Repository) ListQuestionnaires(ownerID int64) ([]models.Questionnaire, error) {
	var qs []models.Questionnaire
	err := r.db.Where("created_by = ?", ownerID).Order("created_at").Find(&qs).Error
	return qs, err
}

func (r *Repository) SetQuestionnaireStatus(id int64, status models.QuestionnaireStatus) error {
	res := r.db.Model(&models.Questionnaire{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddQuestion appends the question at the next position. The max+1 read and
// the insert run in one transaction so positions stay dense even with
// concurrent authors.
func (r *Repository) AddQuestion(question models.Question) (int64, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var maxPos int
		err := tx.Model(&models.Question{}).
			Where("questionnaire_id = ?", question.QuestionnaireID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPos).Error
		if err != nil {
			return err
		}
		question.Position = maxPos + 1
		return tx.Create(&question).Error
	})
	if err != nil {
		return 0, err
	}
	return question.ID, nil
}

func (r *Repository) ListQuestions(questionnaireID int64) ([]models.Question, error) {
	var qs []models.Question
	err := r.db.Where("questionnaire_id = ?", questionnaireID).Order("position").Find(&qs).Error
	return qs, err
}

// StartAttempt resets the (questionnaire, user) attempt in place: a restart
// wipes the completion flags and the start time of the previous pass.
func (r *Repository) StartAttempt(questionnaireID, userID int64) error {
	attempt := models.Attempt{
		QuestionnaireID: questionnaireID,
		UserID:          userID,
		StartedAt:       time.Now(),
		CompletedAt:     nil,
		IsCompleted:     false,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "questionnaire_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"started_at", "completed_at", "is_completed"}),
	}).Create(&attempt).Error
}

// SaveAnswer overwrites any previous answer for the same question; the
// unique index on (questionnaire, user, question) keeps one row per key.
func (r *Repository) SaveAnswer(answer models.Answer) error {
	answer.CreatedAt = time.Now()
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "questionnaire_id"},
			{Name: "user_id"},
			{Name: "question_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"text", "selected_option", "selected_options", "created_at"}),
	}).Create(&answer).Error
}

func (r *Repository) CompleteAttempt(questionnaireID, userID int64) error {
	now := time.Now()
	res := r.db.Model(&models.Attempt{}).
		Where("questionnaire_id = ? AND user_id = ?", questionnaireID, userID).
		Updates(map[string]any{"is_completed": true, "completed_at": &now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) GetAttemptStats(questionnaireID int64) (models.AttemptStats, error) {
	var stats models.AttemptStats
	err := r.db.Model(&models.Attempt{}).
		Where("questionnaire_id = ?", questionnaireID).
		Count(&stats.Started).Error
	if err != nil {
		return stats, err
	}
	err = r.db.Model(&models.Attempt{}).
		Where("questionnaire_id = ? AND is_completed = ?", questionnaireID, true).
		Count(&stats.Completed).Error
	return stats, err
}

// ListAttemptsWithAnswers joins attempts with their users and answers,
// ordered by start time. Users who vanished from the users table still get
// a stub identity so exports never drop a response.
func (r *Repository) ListAttemptsWithAnswers(questionnaireID int64) ([]models.AttemptWithAnswers, error) {
	var attempts []models.Attempt
	err := r.db.Where("questionnaire_id = ?", questionnaireID).Order("started_at").Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	if len(attempts) == 0 {
		return nil, nil
	}

	userIDs := make([]int64, 0, len(attempts))
	for _, a := range attempts {
		userIDs = append(userIDs, a.UserID)
	}
	var users []models.User
	if err := r.db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	usersByID := make(map[int64]models.User, len(users))
	for _, u := range users {
		usersByID[u.ID] = u
	}

	var answers []models.Answer
	if err := r.db.Where("questionnaire_id = ?", questionnaireID).Find(&answers).Error; err != nil {
		return nil, err
	}
	answersByUser := make(map[int64]map[int64]models.Answer)
	for _, a := range answers {
		if answersByUser[a.UserID] == nil {
			answersByUser[a.UserID] = make(map[int64]models.Answer)
		}
		answersByUser[a.UserID][a.QuestionID] = a
	}

	out := make([]models.AttemptWithAnswers, 0, len(attempts))
	for _, a := range attempts {
		user, ok := usersByID[a.UserID]
		if !ok {
			user = models.User{ID: a.UserID}
		}
		userAnswers := answersByUser[a.UserID]
		if userAnswers == nil {
			userAnswers = make(map[int64]models.Answer)
		}
		out = append(out, models.AttemptWithAnswers{
			User:        user,
			StartedAt:   a.StartedAt,
			CompletedAt: a.CompletedAt,
			IsCompleted: a.IsCompleted,
			Answers:     userAnswers,
		})
	}
	return out, nil
}
