package domain

import (
	"strconv"
	"strings"
)

// GradeNumber returns the leading numeric prefix of a grade label such as
// "6 класс", or 0 when the label does not start with a digit. Stores use it to
// order grades numerically before lexically.
func GradeNumber(grade string) int {
	grade = strings.TrimLeft(grade, " ")
	end := 0
	for end < len(grade) && grade[end] >= '0' && grade[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(grade[:end])
	if err != nil {
		return 0
	}
	return n
}
