package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	SpecialCharacters = "!@#$%^&*()_+-=[]{}|;:'\",.<>/?`~"
)

type PasswordRule struct {
	Label string
	check func(string) bool
}

type RuleResult struct {
	Label string
	Met   bool
}

var PasswordRules = []PasswordRule{
	{Label: "At least 8 characters", check: func(pw string) bool {
		return utf8.RuneCountInString(pw) >= MinPasswordLength
	}},
	{Label: "At least one number", check: func(pw string) bool {
		return strings.IndexFunc(pw, unicode.IsDigit) >= 0
	}},
	{Label: "At least one special character", check: func(pw string) bool {
		return strings.ContainsAny(pw, SpecialCharacters)
	}},
	{Label: "At least one uppercase letter", check: func(pw string) bool {
		return strings.IndexFunc(pw, unicode.IsUpper) >= 0
	}},
	{Label: "At least one lowercase letter", check: func(pw string) bool {
		return strings.IndexFunc(pw, unicode.IsLower) >= 0
	}},
}

// CheckPassword evaluates every rule, in PasswordRules order. The length rule
// gates the rest: a password shorter than MinPasswordLength meets no rule.
func CheckPassword(password string) []RuleResult {
	results := make([]RuleResult, len(PasswordRules))
	longEnough := PasswordRules[0].check(password)
	for i, rule := range PasswordRules {
		results[i] = RuleResult{Label: rule.Label, Met: longEnough && rule.check(password)}
	}
	return results
}

func satisfiedCount(results []RuleResult) int {
	n := 0
	for _, r := range results {
		if r.Met {
			n++
		}
	}
	return n
}

func unmetRules(results []RuleResult) []string {
	var unmet []string
	for _, r := range results {
		if !r.Met {
			unmet = append(unmet, strings.ToLower(r.Label))
		}
	}
	return unmet
}
