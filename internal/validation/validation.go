// Package validation checks user supplied kid and task fields before they reach storage.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"kidtasks/internal/models"
)

// Field limits
const (
	MaxNameLength      = 40
	MaxTitleLength     = 80
	MaxIconValueLength = 512 * 1024 // image data URLs
	MaxPhotoLength     = 2 * 1024 * 1024
	MinPasswordLength  = 8
	MaxIDLength        = 64
)

// Error is a validation failure on one input field
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Field + ": " + e.Message
}

// IsValidationError reports whether err carries a validation Error
func IsValidationError(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

func fieldError(field, format string, args ...any) error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

var (
	emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	colorRegexp = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	idRegexp    = regexp.MustCompile(`^[A-Za-z0-9_.:\-]+$`)
)

// ValidateEmail checks an email address
func ValidateEmail(email string) error {
	if !emailRegexp.MatchString(email) {
		return fieldError("email", "invalid email address")
	}
	return nil
}

// ValidateName checks a kid's display name
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fieldError("name", "name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fieldError("name", "name must be at most %d characters", MaxNameLength)
	}
	return nil
}

// ValidateColor checks a #rgb or #rrggbb color
func ValidateColor(color string) error {
	if !colorRegexp.MatchString(color) {
		return fieldError("color", "color must be a hex value like #ff8800")
	}
	return nil
}

// ValidatePhoto checks an optional kid photo data URL
func ValidatePhoto(photo string) error {
	if photo == "" {
		return nil
	}
	if !strings.HasPrefix(photo, "data:image/") {
		return fieldError("photoDataUrl", "photo must be an image data URL")
	}
	if len(photo) > MaxPhotoLength {
		return fieldError("photoDataUrl", "photo is too large")
	}
	return nil
}

// ValidateTitle checks a task title
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fieldError("title", "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fieldError("title", "title must be at most %d characters", MaxTitleLength)
	}
	return nil
}

// ValidateIcon checks a task icon type and value together
func ValidateIcon(iconType, iconValue string) error {
	switch iconType {
	case models.IconTypeEmoji:
		if iconValue == "" {
			return fieldError("iconValue", "emoji is required")
		}
		if utf8.RuneCountInString(iconValue) > 16 {
			return fieldError("iconValue", "emoji is too long")
		}
	case models.IconTypeImage:
		if !strings.HasPrefix(iconValue, "data:image/") &&
			!strings.HasPrefix(iconValue, "https://") && !strings.HasPrefix(iconValue, "http://") {
			return fieldError("iconValue", "image must be a data URL or http(s) URL")
		}
		if len(iconValue) > MaxIconValueLength {
			return fieldError("iconValue", "image is too large")
		}
	default:
		return fieldError("iconType", "icon type must be %q or %q", models.IconTypeEmoji, models.IconTypeImage)
	}
	return nil
}

// ValidateOrder checks a task order position
func ValidateOrder(order int) error {
	if order < 0 {
		return fieldError("order", "order must not be negative")
	}
	return nil
}

// ValidatePassword checks the shared board password
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fieldError("password", "password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// ValidateID checks a kid or task identifier
func ValidateID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return fieldError(field, "%s is required", field)
	}
	if len(id) > MaxIDLength {
		return fieldError(field, "%s must be at most %d characters", field, MaxIDLength)
	}
	if !idRegexp.MatchString(id) {
		return fieldError(field, "%s may only contain letters, digits and _ . : -", field)
	}
	return nil
}

// ValidateOptionalID checks a client chosen identifier; empty means the server assigns one
func ValidateOptionalID(field, id string) error {
	if id == "" {
		return nil
	}
	return ValidateID(field, id)
}
