// Package credentials reads the catalog login file.
//
// The file holds exactly two lines: the account email, then the password.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	govalidator "github.com/go-playground/validator/v10"

	"coursecal/internal/apperr"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

var validate = func() *govalidator.Validate {
	v := govalidator.New(govalidator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("login_email", func(fl govalidator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}()

// Credentials are the catalog account email and password.
type Credentials struct {
	Email    string `validate:"required,login_email"`
	Password string `validate:"required"`
}

const formatHint = "format the file as follows:\nemail@example.com\npassword123"

// Read loads and validates the login file at path.
func Read(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: read login file: %v", apperr.ErrAuthenticationFailed, err)
	}
	return Parse(string(data))
}

// Parse validates the contents of a login file. A single trailing newline
// and CRLF line endings are accepted.
func Parse(content string) (Credentials, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSuffix(content, "\n")

	lines := strings.Split(content, "\n")
	if len(lines) != 2 {
		return Credentials{}, fmt.Errorf("%w: incorrectly formatted login file, %s", apperr.ErrAuthenticationFailed, formatHint)
	}

	creds := Credentials{Email: lines[0], Password: lines[1]}
	if err := validate.Struct(creds); err != nil {
		var ve govalidator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 && ve[0].Field() == "Email" {
			return Credentials{}, fmt.Errorf("%w: invalid email: %s", apperr.ErrAuthenticationFailed, creds.Email)
		}
		return Credentials{}, fmt.Errorf("%w: incorrectly formatted login file, %s", apperr.ErrAuthenticationFailed, formatHint)
	}
	return creds, nil
}
