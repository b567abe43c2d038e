package flow

import (
	"fmt"
	"strconv"
	"strings"

	"surveybot/internal/models"
)

// FormatQuestion renders one question as the participant sees it: ordinal,
// text, a type-specific instruction block, and the required footer.
func FormatQuestion(q models.Question, number, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 Question %d/%d:\n%s\n\n", number, total, q.Text)

	switch q.Type {
	case models.SingleChoice:
		b.WriteString("🔘 Select ONE option:\n")
		for i, opt := range q.Options {
			fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
		}
		fmt.Fprintf(&b, "\nReply with the number of your choice (1-%d)", len(q.Options))
	case models.MultipleChoice:
		b.WriteString("☑️ Select ONE or MORE options:\n")
		for i, opt := range q.Options {
			fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
		}
		b.WriteString("\nReply with numbers separated by commas (e.g., 1,3,5)")
	case models.TextAnswer:
		b.WriteString("💬 Please type your answer:")
	}

	if q.IsRequired {
		b.WriteString("\n\n⚠️ This question is required.")
	}
	return b.String()
}

// FormatQuestionnaireInfo renders the per-questionnaire card in list views.
func FormatQuestionnaireInfo(q models.Questionnaire, questionCount int, stats models.AttemptStats) string {
	return fmt.Sprintf(`%s **%s**

📋 Description: %s
❓ Questions: %d
👥 Started: %d
✅ Completed: %d
📅 Created: %s
🔄 Status: %s`,
		statusIcon(q.Status), q.Title,
		orDefault(q.Description, "No description"),
		questionCount,
		stats.Started, stats.Completed,
		q.CreatedAt.Format("2006-01-02 15:04"),
		statusTitle(q.Status))
}

// FormatSummary renders the response summary an admin sees for one
// questionnaire: totals plus the last five completed attempts.
func FormatSummary(title string, attempts []models.AttemptWithAnswers) string {
	if len(attempts) == 0 {
		return fmt.Sprintf("📊 **Response Summary for '%s'**\n\nNo responses yet.", title)
	}

	var completed []models.AttemptWithAnswers
	for _, a := range attempts {
		if a.IsCompleted {
			completed = append(completed, a)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 **Response Summary for '%s'**\n\n", title)
	fmt.Fprintf(&b, "📈 Total Responses: %d\n", len(attempts))
	fmt.Fprintf(&b, "✅ Completed: %d\n", len(completed))
	fmt.Fprintf(&b, "⏳ In Progress: %d\n", len(attempts)-len(completed))

	if len(completed) > 0 {
		b.WriteString("\n**Recent Completed Responses:**\n")
		recent := completed
		if len(recent) > 5 {
			recent = recent[len(recent)-5:]
		}
		for i, a := range recent {
			when := ""
			if a.CompletedAt != nil {
				when = a.CompletedAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(&b, "%d. %s - %s\n", i+1, a.User.DisplayName(), when)
		}
		if len(completed) > 5 {
			fmt.Fprintf(&b, "... and %d more\n", len(completed)-5)
		}
	}
	return b.String()
}

func statusIcon(s models.QuestionnaireStatus) string {
	switch s {
	case models.StatusDraft:
		return "📝"
	case models.StatusActive:
		return "✅"
	case models.StatusClosed:
		return "🔒"
	}
	return "❓"
}

func statusTitle(s models.QuestionnaireStatus) string {
	switch s {
	case models.StatusDraft:
		return "Draft"
	case models.StatusActive:
		return "Active"
	case models.StatusClosed:
		return "Closed"
	}
	return string(s)
}

func typeIcon(t models.QuestionType) string {
	switch t {
	case models.SingleChoice:
		return "🔘"
	case models.MultipleChoice:
		return "☑️"
	case models.TextAnswer:
		return "📝"
	}
	return "❓"
}

func typeTitle(t models.QuestionType) string {
	switch t {
	case models.SingleChoice:
		return "Single Choice"
	case models.MultipleChoice:
		return "Multiple Choice"
	case models.TextAnswer:
		return "Text Answer"
	}
	return string(t)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// parseSingleChoice validates a single-choice reply: an integer in
// [1, optionCount], returned as a 0-based index.
func parseSingleChoice(input string, optionCount int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 1 || n > optionCount {
		return 0, validationf("❌ Invalid option. Please select a number between 1 and %d.", optionCount)
	}
	return n - 1, nil
}

// parseMultipleChoice validates a comma-separated multi-choice reply.
// A single malformed or out-of-range token invalidates the whole input.
func parseMultipleChoice(input string, optionCount int) ([]int, error) {
	invalid := validationf("❌ Invalid format. Please enter numbers separated by commas (e.g., 1,3,5).\nValid options: 1-%d", optionCount)

	var selected []int
	for _, piece := range strings.Split(input, ",") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			return nil, invalid
		}
		n, err := strconv.Atoi(piece)
		if err != nil || n < 1 || n > optionCount {
			return nil, invalid
		}
		selected = append(selected, n-1)
	}
	if len(selected) == 0 {
		return nil, invalid
	}
	return selected, nil
}
