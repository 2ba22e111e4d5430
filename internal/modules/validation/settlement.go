package validation

import (
	"strings"
	"unicode"
)

const (
	settlementMinLen = 10
	settlementMaxLen = 500
)

const (
	msgSettlementLength    = "Settlement instructions must be between 10 and 500 characters."
	msgSettlementSemicolon = "Semicolons are not allowed in settlement instructions."
	msgSettlementQuote     = `Unescaped quote found. Escape quotes with a backslash (\" for double quotes). Example: Settle note: client said \"urgent\".`
	msgSettlementCharset   = `Settlement instructions contain unsupported characters. Escape quotes with \" (e.g. Settle note: client said \"urgent\").`
)

// ValidateSettlementInstructions checks free-text settlement instructions.
// The field is optional; blank input passes. Non-blank text must be
// 10-500 characters, free of semicolons, with every quote escaped by a
// backslash, and limited to letters, digits, spaces, newlines and the
// punctuation set ",.:/()-".
func ValidateSettlementInstructions(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if n := len([]rune(text)); n < settlementMinLen || n > settlementMaxLen {
		return []string{msgSettlementLength}
	}

	if strings.ContainsRune(text, ';') {
		return []string{msgSettlementSemicolon}
	}

	if hasUnescapedQuote(text) {
		return []string{msgSettlementQuote}
	}

	if !allowedSettlementText(text) {
		return []string{msgSettlementCharset}
	}
	return nil
}

// hasUnescapedQuote reports whether text contains a single or double
// quote not immediately preceded by a backslash.
func hasUnescapedQuote(text string) bool {
	runes := []rune(text)
	for i, r := range runes {
		if r == '"' || r == '\'' {
			if i == 0 || runes[i-1] != '\\' {
				return true
			}
		}
	}
	return false
}

// allowedSettlementText reports whether text consists only of letters,
// digits, spaces, newlines, the punctuation ",.:/()-" and
// backslash-escaped quotes.
func allowedSettlementText(text string) bool {
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' {
			// Only a quote may follow a backslash.
			if i+1 < len(runes) && (runes[i+1] == '"' || runes[i+1] == '\'') {
				i++
				continue
			}
			return false
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case ' ', ',', '.', ':', '/', '(', ')', '-', '\n', '\r':
			continue
		}
		return false
	}
	return true
}
