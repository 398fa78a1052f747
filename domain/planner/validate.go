package planner

import (
	"fmt"
	"strings"
	"time"
)

// ValidateDate checks a YYYY-MM-DD calendar date.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, date)
	}
	return nil
}

// ValidateTime checks an optional HH:MM time of day.
func ValidateTime(clock string) error {
	if clock == "" {
		return nil
	}
	if _, err := time.Parse(TimeLayout, clock); err != nil {
		return fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidInput, clock)
	}
	return nil
}

// ValidatePercent checks an optional 0-100 display value.
func ValidatePercent(field string, v *int) error {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > 100 {
		return fmt.Errorf("%w: %s must be between 0 and 100, got %d", ErrInvalidInput, field, *v)
	}
	return nil
}

// Validate checks every stored field of a task.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if err := ValidateDate(t.Date); err != nil {
		return err
	}
	if err := ValidateTime(t.Time); err != nil {
		return err
	}
	if _, err := ParseKind(string(t.Type)); err != nil {
		return err
	}
	if err := ValidatePercent("imageOffset", t.ImageOffset); err != nil {
		return err
	}
	return ValidatePercent("imageOpacity", t.ImageOpacity)
}

// Validate checks the stored fields of a tag.
func (t Tag) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return nil
}
