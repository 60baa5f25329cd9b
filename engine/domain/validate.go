package domain

import (
	"fmt"
	"unicode/utf8"
)

const maxQuestionRunes = 500

// ValidateDraws checks a draws payload against the card catalog and the
// chosen spread. It returns nil or a *ValidationError listing every invalid
// field, so the client can fix the whole payload in one round trip.
func ValidateDraws(draws []Draw, spread Spread, cards *CardCatalog) error {
	var errs []FieldError

	if len(draws) != spread.CardCount {
		errs = append(errs, FieldError{
			Field:  "draws",
			Index:  -1,
			Reason: fmt.Sprintf("expected %d draws for spread %s/%s, got %d", spread.CardCount, spread.Theme, spread.SubTopic, len(draws)),
		})
	}

	for i, d := range draws {
		if !cards.Has(d.CardID) {
			errs = append(errs, FieldError{Field: "card_id", Index: i, Reason: "unknown"})
		}
		if !ValidOrientations[d.Orientation] {
			errs = append(errs, FieldError{Field: "orientation", Index: i, Reason: ErrBadOrientation.Error()})
		}
		if !ValidLifeAreas[d.Domain] {
			errs = append(errs, FieldError{Field: "domain", Index: i, Reason: ErrBadLifeArea.Error()})
		}
		if !spread.HasPosition(d.Position) {
			errs = append(errs, FieldError{Field: "position", Index: i, Reason: ErrBadPosition.Error()})
		}
	}

	return NewValidationError(errs)
}

// ValidateQuestion bounds the free-form question text.
func ValidateQuestion(q string) error {
	if utf8.RuneCountInString(q) > maxQuestionRunes {
		return ErrQuestionTooLong
	}
	return nil
}

// SameDrawMultiset reports whether a and b contain the same draw tuples,
// irrespective of order and with duplicates counted.
func SameDrawMultiset(a, b []Draw) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[Draw]int, len(a))
	for _, d := range a {
		counts[d]++
	}
	for _, d := range b {
		counts[d]--
		if counts[d] < 0 {
			return false
		}
	}
	return true
}
