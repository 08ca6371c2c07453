package booking

import "strings"

// affirmations are the accepted confirmation openers. Matching is a
// case-insensitive prefix test so "yes please" and "Yeah, that's it" pass.
var affirmations = []string{
	"yes",
	"yeah",
	"yep",
	"correct",
	"that's right",
	"thats right",
	"right",
	"sure",
	"okay",
	"ok",
}

// IsAffirmative reports whether a caller reply counts as accepting the
// booking summary. Anything else, including an empty reply, is a rejection.
func IsAffirmative(reply string) bool {
	reply = strings.ToLower(strings.TrimSpace(reply))
	reply = strings.TrimLeft(reply, ".,!? ")
	if reply == "" {
		return false
	}
	for _, word := range affirmations {
		if strings.HasPrefix(reply, word) {
			return true
		}
	}
	return false
}
