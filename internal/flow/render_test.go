package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveybot/internal/models"
)

func TestParseSingleChoice(t *testing.T) {
	cases := []struct {
		input   string
		options int
		want    int
		wantErr bool
	}{
		{"1", 2, 0, false},
		{"2", 2, 1, false},
		{" 2 ", 2, 1, false},
		{"3", 2, 0, true},
		{"0", 2, 0, true},
		{"-1", 2, 0, true},
		{"abc", 2, 0, true},
		{"1.5", 2, 0, true},
		{"", 2, 0, true},
	}
	for _, tc := range cases {
		got, err := parseSingleChoice(tc.input, tc.options)
		if tc.wantErr {
			var verr *ValidationError
			require.ErrorAs(t, err, &verr, "input %q", tc.input)
			continue
		}
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
	}
}

func TestParseMultipleChoice(t *testing.T) {
	cases := []struct {
		input   string
		options int
		want    []int
		wantErr bool
	}{
		{"1", 3, []int{0}, false},
		{"1,3", 3, []int{0, 2}, false},
		{" 1 , 2 ", 3, []int{0, 1}, false},
		{"1,1", 3, []int{0, 0}, false}, // duplicates pass through as received
		{"1,4", 3, nil, true},
		{"1,x", 3, nil, true},
		{"", 3, nil, true},
		{",", 3, nil, true},
		{"1,,2", 3, nil, true},
	}
	for _, tc := range cases {
		got, err := parseMultipleChoice(tc.input, tc.options)
		if tc.wantErr {
			var verr *ValidationError
			require.ErrorAs(t, err, &verr, "input %q", tc.input)
			continue
		}
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
	}
}

func TestFormatQuestionSingleChoice(t *testing.T) {
	q := models.Question{
		Text:       "How satisfied are you?",
		Type:       models.SingleChoice,
		Options:    models.StringList{"Good", "Bad"},
		IsRequired: true,
	}
	out := FormatQuestion(q, 1, 3)
	assert.Contains(t, out, "Question 1/3")
	assert.Contains(t, out, "How satisfied are you?")
	assert.Contains(t, out, "1. Good")
	assert.Contains(t, out, "2. Bad")
	assert.Contains(t, out, "(1-2)")
	assert.Contains(t, out, "required")
}

func TestFormatQuestionText(t *testing.T) {
	q := models.Question{Text: "Any comments?", Type: models.TextAnswer}
	out := FormatQuestion(q, 2, 2)
	assert.Contains(t, out, "Question 2/2")
	assert.Contains(t, out, "type your answer")
	assert.NotContains(t, out, "required")
}

func TestFormatSummary(t *testing.T) {
	assert.Contains(t, FormatSummary("Empty", nil), "No responses yet")

	now := time.Now()
	attempts := []models.AttemptWithAnswers{
		{User: models.User{ID: 1, Username: "alice"}, IsCompleted: true, CompletedAt: &now},
		{User: models.User{ID: 2, FirstName: "Bob"}},
	}
	out := FormatSummary("Survey", attempts)
	assert.Contains(t, out, "Total Responses: 2")
	assert.Contains(t, out, "Completed: 1")
	assert.Contains(t, out, "In Progress: 1")
	assert.Contains(t, out, "@alice")
}

func TestFormatQuestionnaireInfo(t *testing.T) {
	q := models.Questionnaire{
		Title:     "Survey",
		Status:    models.StatusActive,
		CreatedAt: time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC),
	}
	out := FormatQuestionnaireInfo(q, 4, models.AttemptStats{Started: 10, Completed: 7})
	assert.Contains(t, out, "Survey")
	assert.Contains(t, out, "No description")
	assert.Contains(t, out, "Questions: 4")
	assert.Contains(t, out, "Started: 10")
	assert.Contains(t, out, "Completed: 7")
	assert.Contains(t, out, "Status: Active")
}
