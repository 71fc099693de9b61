package password

import (
	"strings"
	"unicode"
)

// MaxScore максимальная оценка надёжности.
const MaxScore = 6

// MinLength минимальная длина пароля при регистрации.
const MinLength = 8

// MaxLength bcrypt не учитывает байты после 72-го.
const MaxLength = 72

var tiers = [MaxScore + 1]string{
	"very_weak",
	"weak",
	"fair",
	"moderate",
	"good",
	"strong",
	"very_strong",
}

var commonPatterns = []string{"password", "123", "qwerty", "abc", "111", "admin", "letmein"}

// Strength результат оценки надёжности пароля.
type Strength struct {
	Score    int      `json:"score"`
	MaxScore int      `json:"max_score"`
	Tier     string   `json:"tier"`
	Feedback []string `json:"feedback"`
}

type classes struct {
	lower, upper, digit, special bool
}

func classify(s string) classes {
	var c classes
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			c.lower = true
		case unicode.IsUpper(r):
			c.upper = true
		case unicode.IsDigit(r):
			c.digit = true
		case !unicode.IsSpace(r):
			c.special = true
		}
	}
	return c
}

// ScoreStrength оценивает пароль по фиксированной шкале от 0 до 6.
func ScoreStrength(plaintext string) Strength {
	c := classify(plaintext)
	length := len([]rune(plaintext))
	feedback := make([]string, 0, 6)

	score := 0
	checks := []struct {
		ok  bool
		msg string
	}{
		{length >= 8, "use at least 8 characters"},
		{length >= 12, "use 12 or more characters"},
		{c.lower, "add lowercase letters"},
		{c.upper, "add uppercase letters"},
		{c.digit, "add digits"},
		{c.special, "add special characters"},
	}
	for _, ch := range checks {
		if ch.ok {
			score++
		} else {
			feedback = append(feedback, ch.msg)
		}
	}

	lower := strings.ToLower(plaintext)
	for _, p := range commonPatterns {
		if strings.Contains(lower, p) {
			score--
			feedback = append(feedback, "avoid common words and sequences")
			break
		}
	}

	score = max(0, min(score, MaxScore))
	return Strength{
		Score:    score,
		MaxScore: MaxScore,
		Tier:     tiers[score],
		Feedback: feedback,
	}
}

// CheckPolicy проверяет минимальные требования к паролю при регистрации.
// Возвращает список нарушений, пустой если пароль подходит.
func CheckPolicy(plaintext string) []string {
	var violations []string
	if len([]rune(plaintext)) < MinLength {
		violations = append(violations, "password must be at least 8 characters long")
	}
	if len(plaintext) > MaxLength {
		violations = append(violations, "password must be at most 72 bytes long")
	}
	c := classify(plaintext)
	if !c.lower || !c.upper {
		violations = append(violations, "password must contain both uppercase and lowercase letters")
	}
	if !c.digit {
		violations = append(violations, "password must contain at least one digit")
	}
	return violations
}
