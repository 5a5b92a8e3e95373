package invite

import "regexp"

var invitePattern = regexp.MustCompile(`(?i)(?:discord\.gg|discord(?:app)?\.com/invite)/([0-9a-z\-]+)`)

// Fragments returns the invite codes found in content, in order of appearance
func Fragments(content string) []string {
	matches := invitePattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	codes := make([]string, 0, len(matches))
	for _, m := range matches {
		codes = append(codes, m[1])
	}
	return codes
}
