// Package validation checks request fields. Every check returns a Result
// carrying per-field messages instead of failing fast, so a handler can report
// all problems at once.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PasswordMinLength is the minimum accepted password length.
const PasswordMinLength = 8

// FileNameMaxLength bounds a document display name.
const FileNameMaxLength = 255

// AllowedUploadExtension is the only accepted upload extension, without the dot.
const AllowedUploadExtension = "pdf"

var validate = validator.New()

// Result is the outcome of a validation. The zero value is a success.
type Result struct {
	Errors map[string][]string
}

// OK reports whether no field failed.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// Add records a failure for field.
func (r *Result) Add(field, msg string) {
	if r.Errors == nil {
		r.Errors = make(map[string][]string)
	}
	r.Errors[field] = append(r.Errors[field], msg)
}

// check runs a validator tag against value and records a readable message per failed rule.
func (r *Result) check(field string, value any, tag string) {
	err := validate.Var(value, tag)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		r.Add(field, err.Error())
		return
	}
	for _, fe := range verrs {
		r.Add(field, message(field, fe))
	}
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed the %s rule", field, fe.Tag())
	}
}

// Register validates a self-service sign up. Uniqueness of the email is
// checked by the caller against the record store.
func Register(email, password string) Result {
	var r Result
	r.check("email", email, "required,email")
	r.check("password", password, fmt.Sprintf("required,min=%d", PasswordMinLength))
	return r
}

// CreateUser applies the sign up rules to administrative creation.
func CreateUser(email, password string) Result {
	return Register(email, password)
}

// Login validates the credential form. The password is only checked for presence.
func Login(email, password string) Result {
	var r Result
	r.check("email", email, "required,email")
	r.check("password", password, "required")
	return r
}

// UpdateUser validates a partial update; nil fields are left unchanged and skipped.
// An empty password means "keep the current one".
func UpdateUser(email, password *string) Result {
	var r Result
	if email != nil {
		r.check("email", *email, "required,email")
	}
	if password != nil && *password != "" {
		r.check("password", *password, fmt.Sprintf("min=%d", PasswordMinLength))
	}
	return r
}

// RenameDocument validates a new display name.
func RenameDocument(fileName string) Result {
	var r Result
	r.check("fileName", strings.TrimSpace(fileName), fmt.Sprintf("required,max=%d", FileNameMaxLength))
	return r
}

// UploadFile validates an uploaded file field by its presence, size and extension.
func UploadFile(present bool, clientName string, size, maxBytes int64) Result {
	var r Result
	if !present {
		r.Add("file", "file is required")
		return r
	}
	if size <= 0 {
		r.Add("file", "file is empty")
	}
	if maxBytes > 0 && size > maxBytes {
		r.Add("file", fmt.Sprintf("file must be at most %d bytes", maxBytes))
	}
	if !HasAllowedExtension(clientName) {
		r.Add("file", fmt.Sprintf("file extension must be %s", AllowedUploadExtension))
	}
	return r
}

// HasAllowedExtension reports whether name ends in ".pdf", ignoring case.
func HasAllowedExtension(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	return strings.EqualFold(ext, AllowedUploadExtension)
}
