package validation

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// validate - общий инстанс валидатора, потокобезопасен и кэширует метаданные структур
var validate = validator.New(validator.WithRequiredStructEnabled())

// OTPPattern определяет допустимый формат одноразового кода: ровно 6 цифр
var OTPPattern = regexp.MustCompile(`^[0-9]{6}$`)

const (
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 8
)

// ValidateEmail проверяет, что строка является корректным email адресом
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if err := validate.Var(email, "email"); err != nil {
		return fmt.Errorf("invalid email address: %s", email)
	}
	return nil
}

// ValidatePassword проверяет минимальные требования к паролю
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}
	return nil
}

// ValidateOTP проверяет формат одноразового кода (6 цифр)
func ValidateOTP(code string) error {
	if code == "" {
		return fmt.Errorf("code cannot be empty")
	}
	if !OTPPattern.MatchString(code) {
		return fmt.Errorf("code must be exactly 6 digits")
	}
	return nil
}

// ValidateStruct проверяет структуру по validate-тегам полей
// Используется для RegisterRequest и ResetPasswordRequest перед отправкой
func ValidateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if ok := isValidationErrors(err, &verrs); ok && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("field %s failed on the '%s' rule", f.Field(), f.Tag())
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func isValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}
