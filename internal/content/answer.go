package content

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrAnswerMismatch is returned when a recorded correct answer does not
// identify exactly one option.
var ErrAnswerMismatch = errors.New("correct answer does not match exactly one option")

// Answers are compared by canonical leading letter only. Every option gets a
// letter: its explicit prefix ("A)", "b.", "C:", "D -", or a bare letter)
// when all options carry distinct prefixes, otherwise its position (A, B,
// C, ...). Both the recorded correct answer and the learner's selection are
// reduced to that letter before comparing.

// LetterToken extracts an explicit leading letter token such as "B",
// "b)", "B) text", "C. text" or "D - text". Returns "" when s does not
// start with one.
func LetterToken(s string) string {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || r > unicode.MaxASCII || !unicode.IsLetter(r) {
		return ""
	}
	letter := string(unicode.ToUpper(r))

	rest := strings.TrimLeft(s[size:], " \t")
	if rest == "" {
		// A bare letter is a token only when nothing followed it at all.
		if len(s) == size {
			return letter
		}
		return ""
	}
	switch rest[0] {
	case ')', '.', ':', '-':
		return letter
	}
	return ""
}

// stripToken removes an explicit letter prefix and its separator.
func stripToken(s string) string {
	s = strings.TrimSpace(s)
	if LetterToken(s) == "" {
		return s
	}
	_, size := utf8.DecodeRuneInString(s)
	rest := strings.TrimLeft(s[size:], " \t")
	if rest == "" {
		return s
	}
	return strings.TrimSpace(rest[1:])
}

func positionalLetter(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("#%d", i+1)
}

// explicitLetters reports whether every option carries a distinct letter
// prefix.
func explicitLetters(options []string) bool {
	if len(options) == 0 {
		return false
	}
	seen := make(map[string]bool, len(options))
	for _, o := range options {
		l := LetterToken(o)
		if l == "" || seen[l] {
			return false
		}
		seen[l] = true
	}
	return true
}

// OptionLetters returns the canonical letter of each option.
func OptionLetters(options []string) []string {
	explicit := explicitLetters(options)
	letters := make([]string, len(options))
	for i, o := range options {
		if explicit {
			letters[i] = LetterToken(o)
		} else {
			letters[i] = positionalLetter(i)
		}
	}
	return letters
}

func optionBodies(options []string) []string {
	explicit := explicitLetters(options)
	bodies := make([]string, len(options))
	for i, o := range options {
		if explicit {
			bodies[i] = stripToken(o)
		} else {
			bodies[i] = strings.TrimSpace(o)
		}
	}
	return bodies
}

// ResolveAnswer maps a recorded correct answer (full option text, option
// text without its prefix, or a letter token) to the canonical letter of
// the single option it identifies.
func ResolveAnswer(options []string, answer string) (string, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" || len(options) == 0 {
		return "", ErrAnswerMismatch
	}
	letters := OptionLetters(options)

	if l, ok := uniqueMatch(options, letters, func(o string) bool {
		return strings.TrimSpace(o) == answer
	}); ok {
		return l, nil
	}

	body := stripToken(answer)
	if l, ok := uniqueMatch(optionBodies(options), letters, func(b string) bool {
		return strings.EqualFold(b, body) || strings.EqualFold(b, answer)
	}); ok {
		return l, nil
	}

	if tok := LetterToken(answer); tok != "" {
		if l, ok := uniqueMatch(letters, letters, func(l string) bool { return l == tok }); ok {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrAnswerMismatch, answer)
}

func uniqueMatch(values, letters []string, match func(string) bool) (string, bool) {
	found := -1
	for i, v := range values {
		if !match(v) {
			continue
		}
		if found >= 0 {
			return "", false
		}
		found = i
	}
	if found < 0 {
		return "", false
	}
	return letters[found], true
}

// Letters returns the canonical letter of each option of q.
func (q *Question) Letters() []string {
	return OptionLetters(q.Options)
}

// LetterOf returns the canonical letter of the given option, or "" when it
// is not one of q's options.
func (q *Question) LetterOf(option string) string {
	letters := q.Letters()
	for i, o := range q.Options {
		if o == option {
			return letters[i]
		}
	}
	return ""
}

// Body returns option i without its explicit letter prefix.
func (q *Question) Body(i int) string {
	if i < 0 || i >= len(q.Options) {
		return ""
	}
	return optionBodies(q.Options)[i]
}

// CorrectIndex returns the index of the correct option, or -1.
func (q *Question) CorrectIndex() int {
	for i, l := range q.Letters() {
		if l == q.Answer {
			return i
		}
	}
	return -1
}

// IsCorrect reports whether option is the correct answer of q.
func (q *Question) IsCorrect(option string) bool {
	l := q.LetterOf(option)
	return l != "" && l == q.Answer
}
