package domain

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// MaxTopicLength bounds topic strings accepted from callers.
	MaxTopicLength = 256
	// MaxYear is the largest publication year accepted.
	MaxYear = 9999
)

// ValidateTopic checks a topic used to fetch papers.
func ValidateTopic(topic string) error {
	t := strings.TrimSpace(topic)
	if t == "" {
		return NewValidationError("topic", topic, ErrEmptyField)
	}
	if utf8.RuneCountInString(t) > MaxTopicLength {
		return NewValidationError("topic", string([]rune(t)[:32])+"...", ErrFieldTooLong)
	}
	return nil
}

// ValidatePaper checks a paper before it is written to a store.
func ValidatePaper(p Paper) error {
	if strings.TrimSpace(p.Title) == "" {
		return NewValidationError("title", p.Title, ErrEmptyField)
	}
	if p.Year < 0 || p.Year > MaxYear {
		return NewValidationError("year", strconv.Itoa(p.Year), ErrYearOutOfRange)
	}
	return nil
}

// ValidatePatch checks an update-by-title property set.
func ValidatePatch(p PaperPatch) error {
	if p.IsEmpty() {
		return NewValidationError("patch", "", ErrEmptyPatch)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return NewValidationError("title", *p.Title, ErrEmptyField)
	}
	if p.Year != nil && (*p.Year < 0 || *p.Year > MaxYear) {
		return NewValidationError("year", strconv.Itoa(*p.Year), ErrYearOutOfRange)
	}
	return nil
}

// ValidateTopK checks a result count requested by a caller.
func ValidateTopK(k int) error {
	if k <= 0 {
		return NewValidationError("top_k", strconv.Itoa(k), ErrNotPositive)
	}
	return nil
}
