package usecase

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/questionbank"
)

const interviewerSystemPrompt = `You are a professional AI Interview Agent acting as a senior recruiter.

Your responsibilities:
- Conduct structured job interviews based on role and difficulty
- Ask clear, focused questions
- Evaluate responses objectively
- Provide constructive feedback
- Maintain a professional, encouraging tone

Guidelines:
- Ask one question at a time
- Questions should be role-specific and difficulty-appropriate
- Be realistic but fair in evaluation
- Focus on practical knowledge and communication skills`

const questionPromptFmt = `Generate a %s level %s interview question for a %s position.

Focus area: %s

Requirements:
1. Create a clear, specific question appropriate for %s difficulty
2. Provide 4 multiple choice options (A, B, C, D)
3. Indicate the correct answer (A, B, C, or D)
4. Provide a comprehensive ideal answer/explanation (100-150 words)

Return ONLY a valid JSON object in this exact format:
{
  "question": "Your question here?",
  "options": {
    "A": "First option",
    "B": "Second option",
    "C": "Third option",
    "D": "Fourth option"
  },
  "correct_answer": "B",
  "ideal_answer": "Detailed explanation of the concept..."
}

Make the question %s.`

var roleTopics = map[string][]string{
	"Python Developer": {"data structures", "OOP concepts", "frameworks like Django/Flask", "testing", "async programming", "decorators", "generators"},
	"Data Scientist":   {"machine learning algorithms", "statistical analysis", "data preprocessing", "model evaluation", "feature engineering", "Python libraries (pandas, numpy, scikit-learn)"},
	"Web Developer":    {"HTML/CSS/JavaScript", "frontend frameworks (React, Vue, Angular)", "backend development", "REST APIs", "databases", "responsive design", "security"},
}

// IsHROrdinal reports whether the ordinal lands on the behavioral-question
// cadence: every fourth question, never the first.
func IsHROrdinal(ordinal int) bool { return ordinal > 0 && ordinal%4 == 0 }

// QuestionService serves the next question, preferring generative writing and
// falling back to the embedded bank on any failure. A nil AI client serves
// bank questions only.
type QuestionService struct {
	ai       domain.AIClient
	bank     *questionbank.Bank
	provider string
}

// NewQuestionService wires a question service.
func NewQuestionService(ai domain.AIClient, bank *questionbank.Bank, provider string) *QuestionService {
	return &QuestionService{ai: ai, bank: bank, provider: provider}
}

// Next returns the question for the given session ordinal.
func (s *QuestionService) Next(ctx domain.Context, role, level string, ordinal int) (domain.Question, error) {
	tracer := otel.Tracer("usecase.question")
	ctx, span := tracer.Start(ctx, "question.Next")
	defer span.End()

	hr := IsHROrdinal(ordinal)
	if s.ai != nil {
		q, err := s.generate(ctx, role, level, hr)
		if err == nil {
			return q, nil
		}
		slog.Warn("generative question failed, serving bank question",
			slog.String("role", role), slog.String("level", level),
			slog.Int("ordinal", ordinal), slog.Any("error", err))
	}
	return s.bank.Select(role, level, ordinal, hr), nil
}

type generatedQuestion struct {
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
	IdealAnswer   string            `json:"ideal_answer"`
}

func (s *QuestionService) generate(ctx domain.Context, role, level string, hr bool) (domain.Question, error) {
	kind := "technical"
	if hr {
		kind = "HR behavioral"
	}
	topics, ok := roleTopics[role]
	if !ok {
		topics = []string{"general programming"}
	}
	topic := topics[rand.IntN(len(topics))]

	prompt := fmt.Sprintf(questionPromptFmt, level, kind, role, topic, level, difficultyHint(level))
	content, err := s.ai.ChatJSON(ctx, interviewerSystemPrompt, prompt)
	if err != nil {
		return domain.Question{}, fmt.Errorf("op=question.chat: %w", err)
	}
	var gq generatedQuestion
	if err := json.Unmarshal([]byte(cleanJSON(content)), &gq); err != nil {
		return domain.Question{}, fmt.Errorf("op=question.decode: %w: %v", domain.ErrSchemaInvalid, err)
	}
	if gq.Question == "" || gq.IdealAnswer == "" {
		return domain.Question{}, fmt.Errorf("op=question.decode: %w: missing required fields", domain.ErrSchemaInvalid)
	}
	q, err := domain.NewMCQQuestion(gq.Question, gq.Options, gq.CorrectAnswer, gq.IdealAnswer)
	if err != nil {
		return domain.Question{}, fmt.Errorf("op=question.validate: %w", err)
	}
	q.Source = s.provider
	return q, nil
}

func difficultyHint(level string) string {
	switch level {
	case "Hard":
		return "challenging and require deep understanding"
	case "Medium":
		return "moderately challenging"
	default:
		return "foundational and clear"
	}
}
