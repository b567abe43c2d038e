package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveybot/internal/models"
)

// activeQuestionnaire seeds an Active questionnaire and returns its ID and
// question IDs in position order.
func activeQuestionnaire(t *testing.T, store *memStore, questions ...models.Question) (int64, []int64) {
	t.Helper()
	id, err := store.CreateQuestionnaire("Survey", "desc", adminID)
	require.NoError(t, err)
	var qids []int64
	for _, q := range questions {
		q.QuestionnaireID = id
		q.IsRequired = true
		qid, err := store.AddQuestion(q)
		require.NoError(t, err)
		qids = append(qids, qid)
	}
	require.NoError(t, store.SetQuestionnaireStatus(id, models.StatusActive))
	return id, qids
}

func TestStartAnsweringPreconditions(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)

	t.Run("missing questionnaire", func(t *testing.T) {
		reply, err := e.StartAnswering(participantID, 777)
		var perr *PreconditionError
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, reply.Text, "not found")
	})

	t.Run("draft questionnaire", func(t *testing.T) {
		id, err := store.CreateQuestionnaire("Draft", "", adminID)
		require.NoError(t, err)
		reply, err := e.StartAnswering(participantID, id)
		var perr *PreconditionError
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, reply.Text, "not currently available")
	})

	t.Run("active without questions", func(t *testing.T) {
		id, err := store.CreateQuestionnaire("Empty", "", adminID)
		require.NoError(t, err)
		require.NoError(t, store.SetQuestionnaireStatus(id, models.StatusActive))
		reply, err := e.StartAnswering(participantID, id)
		var perr *PreconditionError
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, reply.Text, "no questions")
	})
}

func TestSingleChoiceValidation(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)
	qnrID, qids := activeQuestionnaire(t, store,
		models.Question{Text: "How satisfied are you?", Type: models.SingleChoice, Options: models.StringList{"Good", "Bad"}},
	)

	_, err := e.StartAnswering(participantID, qnrID)
	require.NoError(t, err)

	// Out of range: cursor stays, nothing stored, range named in the hint.
	reply, err := e.HandleText(participantID, "3")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, reply.Text, "between 1 and 2")

	state, ok := e.states.Get(participantID)
	require.True(t, ok)
	assert.Equal(t, 0, state.Cursor)
	_, stored := store.answer(qnrID, participantID, qids[0])
	assert.False(t, stored, "invalid input must not store an answer")

	// Non-numeric input fails the same way.
	_, err = e.HandleText(participantID, "first")
	require.ErrorAs(t, err, &verr)

	// A valid reply stores the 0-based index and completes the attempt
	// because this is the only question.
	reply, err = e.HandleText(participantID, "1")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Survey Completed")

	answer, stored := store.answer(qnrID, participantID, qids[0])
	require.True(t, stored)
	require.NotNil(t, answer.SelectedOption)
	assert.Equal(t, 0, *answer.SelectedOption)

	attempt := store.attempts[[2]int64{qnrID, participantID}]
	require.NotNil(t, attempt)
	assert.True(t, attempt.IsCompleted)
	assert.NotNil(t, attempt.CompletedAt)

	_, ok = e.states.Get(participantID)
	assert.False(t, ok, "state cleared on completion")
}

func TestSingleChoiceStoredIndexIsZeroBased(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)
	qnrID, qids := activeQuestionnaire(t, store,
		models.Question{Text: "Pick", Type: models.SingleChoice, Options: models.StringList{"a", "b", "c", "d"}},
	)

	for k := 1; k <= 4; k++ {
		_, err := e.StartAnswering(participantID, qnrID)
		require.NoError(t, err)
		_, err = e.HandleText(participantID, itoa(int64(k)))
		require.NoError(t, err)

		answer, ok := store.answer(qnrID, participantID, qids[0])
		require.True(t, ok)
		require.NotNil(t, answer.SelectedOption)
		assert.Equal(t, k-1, *answer.SelectedOption)
	}
}

func TestMultipleChoiceAllOrNothing(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)
	qnrID, qids := activeQuestionnaire(t, store,
		models.Question{Text: "Pick many", Type: models.MultipleChoice, Options: models.StringList{"a", "b", "c"}},
	)

	_, err := e.StartAnswering(participantID, qnrID)
	require.NoError(t, err)

	for _, input := range []string{"1,4", "1,x", "", ",", "0,1"} {
		_, err = e.HandleText(participantID, input)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "input %q", input)
		_, stored := store.answer(qnrID, participantID, qids[0])
		assert.False(t, stored, "input %q must not save a partial answer", input)
	}

	_, err = e.HandleText(participantID, " 1, 3 ")
	require.NoError(t, err)
	answer, stored := store.answer(qnrID, participantID, qids[0])
	require.True(t, stored)
	assert.Equal(t, models.IntList{0, 2}, answer.SelectedOptions)
}

func TestTextAnswerRejectsEmpty(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)
	qnrID, qids := activeQuestionnaire(t, store,
		models.Question{Text: "Say something", Type: models.TextAnswer},
	)

	_, err := e.StartAnswering(participantID, qnrID)
	require.NoError(t, err)

	reply, err := e.HandleText(participantID, "   ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, reply.Text, "cannot be empty")

	_, err = e.HandleText(participantID, "  fine, thanks  ")
	require.NoError(t, err)
	answer, stored := store.answer(qnrID, participantID, qids[0])
	require.True(t, stored)
	assert.Equal(t, "fine, thanks", answer.Text)
}

func TestCursorAdvancesThroughQuestions(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)
	qnrID, _ := activeQuestionnaire(t, store,
		models.Question{Text: "Q1", Type: models.TextAnswer},
		models.Question{Text: "Q2", Type: models.SingleChoice, Options: models.StringList{"x", "y"}},
		models.Question{Text: "Q3", Type: models.TextAnswer},
	)

	reply, err := e.StartAnswering(participantID, qnrID)
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Question 1/3")

	reply, err = e.HandleText(participantID, "hello")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Question 2/3")

	reply, err = e.HandleText(participantID, "2")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Question 3/3")

	reply, err = e.HandleText(participantID, "done")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Survey Completed")
}

func TestRestartResetsCursorAndRechecksPreconditions(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)
	qnrID, _ := activeQuestionnaire(t, store,
		models.Question{Text: "Q1", Type: models.TextAnswer},
		models.Question{Text: "Q2", Type: models.TextAnswer},
	)

	_, err := e.StartAnswering(participantID, qnrID)
	require.NoError(t, err)
	_, err = e.HandleText(participantID, "first answer")
	require.NoError(t, err)

	state, _ := e.states.Get(participantID)
	require.Equal(t, 1, state.Cursor)

	// Restart goes through the same entry point and rewinds to 0.
	reply, err := e.HandleAction(participantID, Action{Kind: ActionRestartSurvey, QuestionnaireID: qnrID})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Question 1/2")
	state, _ = e.states.Get(participantID)
	assert.Equal(t, 0, state.Cursor)

	attempt := store.attempts[[2]int64{qnrID, participantID}]
	require.NotNil(t, attempt)
	assert.False(t, attempt.IsCompleted, "restart resets the attempt record")

	// Closing the questionnaire makes a further restart fail.
	require.NoError(t, store.SetQuestionnaireStatus(qnrID, models.StatusClosed))
	_, err = e.StartAnswering(participantID, qnrID)
	var perr *PreconditionError
	require.ErrorAs(t, err, &perr)
}

func TestAnswerSnapshotIgnoresLaterQuestionEdits(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)
	qnrID, _ := activeQuestionnaire(t, store,
		models.Question{Text: "Q1", Type: models.TextAnswer},
	)

	_, err := e.StartAnswering(participantID, qnrID)
	require.NoError(t, err)

	// A question appended after the attempt started is not part of it.
	_, err = store.AddQuestion(models.Question{QuestionnaireID: qnrID, Text: "Late", Type: models.TextAnswer, IsRequired: true})
	require.NoError(t, err)

	reply, err := e.HandleText(participantID, "only answer")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Survey Completed")
}

func TestUnknownQuestionTypeRejectsAnswer(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)
	qnrID, qids := activeQuestionnaire(t, store,
		models.Question{Text: "Broken", Type: models.QuestionType("checkbox")},
	)

	_, err := e.StartAnswering(participantID, qnrID)
	require.NoError(t, err)

	_, err = e.HandleText(participantID, "anything")
	var perr *PreconditionError
	require.ErrorAs(t, err, &perr)

	_, stored := store.answer(qnrID, participantID, qids[0])
	assert.False(t, stored, "a corrupted question must not produce an empty answer")
	state, ok := e.states.Get(participantID)
	require.True(t, ok)
	assert.Equal(t, 0, state.Cursor)
}

func TestSaveAnswerFailureKeepsCursor(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)
	qnrID, _ := activeQuestionnaire(t, store,
		models.Question{Text: "Q1", Type: models.TextAnswer},
		models.Question{Text: "Q2", Type: models.TextAnswer},
	)

	_, err := e.StartAnswering(participantID, qnrID)
	require.NoError(t, err)

	store.failOp = "SaveAnswer"
	reply, err := e.HandleText(participantID, "answer")
	var serr *StoreError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, reply.Text, "Error saving your answer")

	state, _ := e.states.Get(participantID)
	assert.Equal(t, 0, state.Cursor, "failed save must not advance the cursor")

	store.failOp = ""
	reply, err = e.HandleText(participantID, "answer")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Question 2/2")
}

func TestReanswerOverwritesAnswer(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store)
	qnrID, qids := activeQuestionnaire(t, store,
		models.Question{Text: "Q1", Type: models.TextAnswer},
	)

	_, err := e.StartAnswering(participantID, qnrID)
	require.NoError(t, err)
	_, err = e.HandleText(participantID, "first")
	require.NoError(t, err)

	_, err = e.StartAnswering(participantID, qnrID)
	require.NoError(t, err)
	_, err = e.HandleText(participantID, "second")
	require.NoError(t, err)

	answer, ok := store.answer(qnrID, participantID, qids[0])
	require.True(t, ok)
	assert.Equal(t, "second", answer.Text, "upsert keeps no history")
}
