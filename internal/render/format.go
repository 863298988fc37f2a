package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/stemsi/exambot/internal/exam"
	"github.com/stemsi/exambot/internal/session"
)

// Plain-text renditions of session events, as posted to the chat channel.

func seconds(ms int) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', -1, 64)
}

func FormatSessionStart(s session.Info) string {
	mode := ""
	if s.Practice {
		mode = " (practice)"
	}
	mistakes := "∞"
	if s.MaxWrong != nil {
		mistakes = strconv.Itoa(*s.MaxWrong)
	}
	return fmt.Sprintf("<@%s> started **%s**%s\nQuestions: %d | Time limit: %s seconds | Mistakes allowed: %s",
		s.UserID, s.ExamName, mode, s.NumQuestions, seconds(s.Timelimit), mistakes)
}

func FormatQuestion(s session.Info, q exam.Question) string {
	return fmt.Sprintf("Question %d/%d: **%s**", s.CurrentIndex+1, s.NumQuestions, q.Question)
}

func answerEmoji(a exam.Answer) string {
	switch a.Kind {
	case exam.AnswerCorrect:
		return "✅"
	case exam.AnswerTimeout:
		return "⏲️"
	default:
		return "❌"
	}
}

func FormatAnswer(q exam.Question, a exam.Answer) string {
	return fmt.Sprintf("%s %s → %s", answerEmoji(a), a, q.CanonicalAnswer())
}

func FormatTimeout(q exam.Question) string {
	return "Timeout: " + q.CanonicalAnswer()
}

// Percent renders a score in [0, 1] as a whole percentage.
func Percent(score float64) string {
	return strconv.Itoa(int(math.Round(score*100))) + "%"
}

func FormatSessionEnd(s session.Info, score exam.ExamScore) string {
	var b strings.Builder
	verdict := "FAILED"
	if score.Passed {
		verdict = "PASSED"
	}
	fmt.Fprintf(&b, "<@%s> finished **%s**: %s %s\n", s.UserID, s.ExamName, Percent(score.Score), verdict)
	for _, g := range score.GradedQuestions {
		emoji := "❌"
		if g.Answer.IsCorrect() {
			emoji = "✅"
		}
		fmt.Fprintf(&b, "%s　%s %s → %s　*%s*\n",
			emoji, g.Question.Question, g.Answer, g.Question.CanonicalAnswer(), g.Question.Meaning)
	}
	return strings.TrimRight(b.String(), "\n")
}
