package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/rehabchat/internal/domain/model"
)

var (
	patientTagRe   = regexp.MustCompile(`\b(\d+)_[MFmf]\b`)
	patientWordRe  = regexp.MustCompile(`(?i)\bpatient(?:[\s_-]*(?:id|no\.?|number))?[\s#:_-]*(\d+)\b`)
	gameTextRe     = regexp.MustCompile(`(?i)\bgame[\s_]*(\d+)\b`)
	sessionTextRe  = regexp.MustCompile(`(?i)\bsession[_\s]*(\d+)\b`)
	durationTextRe = regexp.MustCompile(`(?i)\b(how long|duration|time spent|length of (?:the )?session)\b`)
)

// Reset commands clear the conversation context.
var resetCommands = map[string]struct{}{
	"reset":         {},
	"reset context": {},
	"clear":         {},
	"clear context": {},
	"new question":  {},
}

// IsReset reports whether the message asks to clear the conversation.
func IsReset(message string) bool {
	_, ok := resetCommands[strings.ToLower(strings.TrimSpace(message))]
	return ok
}

// IsDefinitionQuestion reports whether the message asks what something means.
func IsDefinitionQuestion(message string) bool {
	q := strings.ToLower(strings.TrimSpace(message))
	return strings.HasPrefix(q, "what is ") ||
		strings.HasPrefix(q, "what's ") ||
		strings.Contains(q, "what does") ||
		strings.Contains(q, "mean?") ||
		strings.Contains(q, "meaning of") ||
		strings.Contains(q, "define") ||
		strings.Contains(q, "explain")
}

// PatientInText returns the patient id the question names, as in "45_M" or
// "patient 45".
func PatientInText(question string) (string, bool) {
	if m := patientTagRe.FindStringSubmatch(question); m != nil {
		return m[1], true
	}
	if m := patientWordRe.FindStringSubmatch(question); m != nil {
		return m[1], true
	}
	return "", false
}

// GamesInText returns the games the question names, normalized to gameN.
func GamesInText(question string) []string {
	var out []string
	for _, m := range gameTextRe.FindAllStringSubmatch(question, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, "game"+strconv.Itoa(n))
	}
	return out
}

// SessionsInText returns the sessions the question names, normalized to
// session_N, in text order.
func SessionsInText(question string) []string {
	var out []string
	for _, m := range sessionTextRe.FindAllStringSubmatch(question, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, model.SessionLabel(n))
	}
	return out
}

// RelativeSessionInText detects phrases like "previous session" and returns
// the matching relative reference.
func RelativeSessionInText(question string) (string, bool) {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "first session") || strings.Contains(q, "earliest session"):
		return model.SessionFirst, true
	case strings.Contains(q, "latest session") || strings.Contains(q, "last session") ||
		strings.Contains(q, "most recent session"):
		return model.SessionLatest, true
	case strings.Contains(q, "previous session") || strings.Contains(q, "prior session") ||
		strings.Contains(q, "session before"):
		return model.SessionPrevious, true
	case strings.Contains(q, "next session") || strings.Contains(q, "following session") ||
		strings.Contains(q, "session after"):
		return model.SessionNext, true
	}
	return "", false
}

// IsDurationQuestion reports whether the question asks how long something took.
func IsDurationQuestion(question string) bool {
	return durationTextRe.MatchString(question)
}

// IsSessionRangeQuestion reports phrasing like "from session 1 to session 5".
func IsSessionRangeQuestion(question string) bool {
	q := strings.ToLower(question)
	return (strings.Contains(q, "from session") && strings.Contains(q, "to session")) ||
		(strings.Contains(q, "between session") && strings.Contains(q, "and session")) ||
		(strings.Contains(q, "sessions ") && strings.Contains(q, " to "))
}

// IsCompareQuestion reports phrasing that asks for a comparison.
func IsCompareQuestion(question string) bool {
	q := strings.ToLower(question)
	return strings.Contains(q, "compare") || strings.Contains(q, "differ") ||
		strings.Contains(q, " vs") || strings.Contains(q, "versus")
}
