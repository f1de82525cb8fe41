package utils

import (
	"regexp"
	"strconv"
)

// Student IDs often encode the grade level: "STU_1001_Class6", "STU_1001_6",
// "STU1001C6", "STU_1001_GR10". The grade customizes which learning
// resources get recommended; 0 means no grade could be determined.

var (
	gradeClassPattern  = regexp.MustCompile(`(?i)class\s*[_-]?\s*(\d+)`)
	gradePrefixPattern = regexp.MustCompile(`(?i)(?:c|gr|grade)\s*[_-]?\s*(\d+)`)
	gradeSuffixPattern = regexp.MustCompile(`[_-](\d{1,2})$`)
)

// ExtractGradeLevel extracts the grade level from a student identifier.
func ExtractGradeLevel(studentID string) int {
	if studentID == "" {
		return 0
	}

	if m := gradeClassPattern.FindStringSubmatch(studentID); m != nil {
		return parseGrade(m[1])
	}
	if m := gradePrefixPattern.FindStringSubmatch(studentID); m != nil {
		return parseGrade(m[1])
	}
	if m := gradeSuffixPattern.FindStringSubmatch(studentID); m != nil {
		return parseGrade(m[1])
	}
	return 0
}

func parseGrade(digits string) int {
	grade, err := strconv.Atoi(digits)
	if err != nil || grade < 1 || grade > 12 {
		return 0
	}
	return grade
}
