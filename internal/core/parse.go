package core

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"tutorcore/pkg/domain"
)

// User-facing rejection messages.
const (
	MsgStudentNotUnderstood = "Не могу понять сообщение. Напишите текст в формате\n➡Вася Пупкин 6 класс\n\nили нажмите /cancel"
	MsgGradeNotUnderstood   = "Не могу понять сообщение. Напишите класс для темы в формате\n➡6 класс\nили нажмите /cancel"
	MsgThemeNotUnderstood   = "Не могу понять сообщение. Напишите название темы\nили нажмите /cancel"
	MsgDictationEmpty       = "Не могу понять сообщение. Напишите текст диктанта\nили нажмите /cancel"
)

const (
	wordPattern  = `[\p{L}\p{N}_]+`
	gradePattern = `[0-9]{1,2} класс`
	// Any Unicode whitespace rune, not only the ASCII set \s covers.
	spacePattern = `[\s\x{0b}\x{1c}-\x{1f}\x{85}\p{Z}]`
)

var (
	// Two or three words, a grade, then at most one whitespace rune (a
	// newline included) and the rest of that line as the description. Only
	// the start of the input is anchored.
	studentPattern = regexp.MustCompile(`^(` + wordPattern + ` ` + wordPattern + `(?: ` + wordPattern + `)?) (` + gradePattern + `)` + spacePattern + `?(.*)`)
	gradeLabel     = regexp.MustCompile(`\A` + gradePattern + `\z`)
)

// ParseStudentAddition parses "<full name> <N класс> [description]" into an
// unsaved Student. The input is NFC-normalised first so that decomposed
// Cyrillic letters still count as word characters.
func ParseStudentAddition(raw string) (domain.Student, error) {
	m := studentPattern.FindStringSubmatch(norm.NFC.String(raw))
	if m == nil || m[1] == "" || m[2] == "" {
		return domain.Student{}, &domain.ValidationError{Message: MsgStudentNotUnderstood}
	}
	return domain.Student{FullName: m[1], Grade: m[2], Description: m[3]}, nil
}

// ValidateGradeLabel accepts exactly one or two digits, a space and "класс".
func ValidateGradeLabel(raw string) error {
	_, err := normalizeGradeLabel(raw)
	return err
}

func normalizeGradeLabel(raw string) (string, error) {
	grade := norm.NFC.String(raw)
	if !gradeLabel.MatchString(grade) {
		return "", &domain.ValidationError{Message: MsgGradeNotUnderstood}
	}
	return grade, nil
}

// ParseThemeName trims and normalises a theme name, rejecting blank input.
func ParseThemeName(raw string) (string, error) {
	name := strings.TrimSpace(norm.NFC.String(raw))
	if name == "" {
		return "", &domain.ValidationError{Message: MsgThemeNotUnderstood}
	}
	return name, nil
}

func parseDictationText(raw string) (string, error) {
	text := strings.TrimSpace(norm.NFC.String(raw))
	if text == "" {
		return "", &domain.ValidationError{Message: MsgDictationEmpty}
	}
	return text, nil
}
