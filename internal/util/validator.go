package util

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"member-portal/internal/config"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateEmail 验证邮箱格式
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is empty")
	}
	if len(email) > 255 || !emailRe.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// WeakPasswordError carries every violated policy rule, not just the first.
type WeakPasswordError struct {
	Violations []string
}

func (e *WeakPasswordError) Error() string {
	return "weak password: " + strings.Join(e.Violations, "; ")
}

// ValidatePassword 按配置的密码策略检查强度，返回所有不满足的规则。
func ValidatePassword(policy config.PasswordPolicy, password string) error {
	var violations []string

	if len(password) < policy.MinLength {
		violations = append(violations, fmt.Sprintf("must be at least %d characters", policy.MinLength))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	if policy.RequireUpper && !hasUpper {
		violations = append(violations, "must contain an uppercase letter")
	}
	if policy.RequireLower && !hasLower {
		violations = append(violations, "must contain a lowercase letter")
	}
	if policy.RequireDigit && !hasDigit {
		violations = append(violations, "must contain a digit")
	}
	if policy.RequireSpecial && !hasSpecial {
		violations = append(violations, "must contain a special character")
	}

	if len(violations) > 0 {
		return &WeakPasswordError{Violations: violations}
	}
	return nil
}
