package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"surveybot/internal/models"
)

const sheetName = "Responses"

// Workbook renders completed responses for one questionnaire as an xlsx
// workbook: one row per completed attempt, one column per question, in
// question order. In-progress attempts are left out.
func Workbook(questionnaire models.Questionnaire, questions []models.Question, attempts []models.AttemptWithAnswers) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	header := []string{"User ID", "Username", "First Name", "Last Name", "Started At", "Completed At"}
	for _, q := range questions {
		header = append(header, q.Text)
	}
	if err := writeRow(f, 1, header); err != nil {
		return nil, err
	}

	row := 2
	for _, a := range attempts {
		if !a.IsCompleted {
			continue
		}
		completedAt := ""
		if a.CompletedAt != nil {
			completedAt = a.CompletedAt.Format("2006-01-02 15:04:05")
		}
		cells := []string{
			fmt.Sprintf("%d", a.User.ID),
			a.User.Username,
			a.User.FirstName,
			a.User.LastName,
			a.StartedAt.Format("2006-01-02 15:04:05"),
			completedAt,
		}
		for _, q := range questions {
			cells = append(cells, renderAnswer(q, a.Answers))
		}
		if err := writeRow(f, row, cells); err != nil {
			return nil, err
		}
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return &buf, nil
}

// FileName is the attachment name the bot sends the workbook under.
func FileName(questionnaire models.Questionnaire) string {
	title := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '_'
		}
		return -1
	}, questionnaire.Title)
	if title == "" {
		title = "questionnaire"
	}
	return fmt.Sprintf("%s_%d_results.xlsx", title, questionnaire.ID)
}

func writeRow(f *excelize.File, row int, cells []string) error {
	for col, value := range cells {
		name, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, name, value); err != nil {
			return err
		}
	}
	return nil
}

// renderAnswer turns a stored answer into the cell text: the chosen option
// label for single choice, a comma-joined label list for multiple choice,
// the raw text otherwise. Unanswered questions render empty.
func renderAnswer(q models.Question, answers map[int64]models.Answer) string {
	a, ok := answers[q.ID]
	if !ok {
		return ""
	}
	switch q.Type {
	case models.SingleChoice:
		if a.SelectedOption == nil {
			return ""
		}
		return optionLabel(q.Options, *a.SelectedOption)
	case models.MultipleChoice:
		labels := make([]string, 0, len(a.SelectedOptions))
		for _, idx := range a.SelectedOptions {
			labels = append(labels, optionLabel(q.Options, idx))
		}
		return strings.Join(labels, ", ")
	case models.TextAnswer:
		return a.Text
	}
	return a.Text
}

func optionLabel(options models.StringList, idx int) string {
	if idx < 0 || idx >= len(options) {
		return fmt.Sprintf("option %d", idx+1)
	}
	return options[idx]
}
