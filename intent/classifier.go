package intent

import (
	"regexp"
	"strings"
)

// Pre-compiled URL patterns. The video pattern must anchor at the start of a
// candidate URL, not merely occur inside it.
var (
	urlRegex   = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)
	videoRegex = regexp.MustCompile(`^https?://(?:www\.)?(?:youtube\.com|youtu\.be|m\.youtube\.com)`)
)

// commandAliases is the fixed set of exclusive system commands. A message is
// a command only when the whole trimmed, case-folded message equals an alias.
var commandAliases = map[string]struct{}{
	"/clear": {}, "/清除": {}, "/reset": {}, "/重置": {},
	"/status": {}, "/狀態": {}, "/info": {},
	"/help": {}, "/幫助": {}, "/說明": {},
	"/session-stats": {}, "/stats": {},
}

// repoDigestTrigger is the exact token that requests a repository digest.
const repoDigestTrigger = "@g"

// Classify inspects one inbound text message and returns the ordered list of
// detected intents. Commands and the digest trigger are exclusive and
// short-circuit URL scanning; a message with no matches yields a single chat
// intent carrying the original text.
func Classify(message string) []Intent {
	normalized := strings.ToLower(strings.TrimSpace(message))

	if _, ok := commandAliases[normalized]; ok {
		return []Intent{{
			Kind:       KindCommand,
			Confidence: 1.0,
			Payload:    map[string]string{PayloadCommand: normalized},
		}}
	}

	if normalized == repoDigestTrigger {
		return []Intent{{
			Kind:       KindRepoDigest,
			Confidence: 1.0,
			Payload:    map[string]string{},
		}}
	}

	var intents []Intent
	for _, url := range urlRegex.FindAllString(message, -1) {
		kind := KindContentSummary
		if videoRegex.MatchString(url) {
			kind = KindVideoSummary
		}
		intents = append(intents, Intent{
			Kind:       kind,
			Confidence: 0.95,
			Payload:    map[string]string{PayloadURL: url},
		})
	}

	if len(intents) == 0 {
		intents = append(intents, Intent{
			Kind:       KindChat,
			Confidence: 0.9,
			Payload:    map[string]string{PayloadMessage: message},
		})
	}
	return intents
}

// IsCommandAlias reports whether the given normalized token is a recognized
// system command.
func IsCommandAlias(token string) bool {
	_, ok := commandAliases[strings.ToLower(strings.TrimSpace(token))]
	return ok
}
