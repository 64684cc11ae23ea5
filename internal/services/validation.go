package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
)

// Field limits for user supplied values.
const (
	SquadNameMin        = 3
	SquadNameMax        = 30
	SquadMaxTags        = 5
	SquadTagMax         = 20
	SquadDescriptionMax = 500
	DisplayNameMin      = 2
	DisplayNameMax      = 50
	LeetCodeNameMax     = 50
	GitHubNameMax       = 39
	ShowcaseBadgesMax   = 3
)

var (
	squadNameRE    = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)
	leetCodeNameRE = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// alphanumerics separated by single hyphens, no leading or trailing hyphen
	gitHubNameRE = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9]|-[a-zA-Z0-9])*$`)
	reminderRE   = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

// normalizeSpaces trims s and collapses runs of whitespace to one space.
func normalizeSpaces(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

var whitespaceRE = regexp.MustCompile(`\s+`)

func validateSquadName(name string) error {
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
		return errs.Validation("Name", "Squad name is required.")
	case n < SquadNameMin || n > SquadNameMax:
		return errs.Validation("Name", fmt.Sprintf("Squad name must be between %d and %d characters.", SquadNameMin, SquadNameMax))
	case !squadNameRE.MatchString(name):
		return errs.Validation("Name", "Squad name may only contain letters, digits, spaces, '_' and '-'.")
	}
	return nil
}

// normalizeTags lower-cases and de-duplicates tags, keeping their order.
func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if utf8.RuneCountInString(t) > SquadTagMax {
			return nil, errs.Validation("Tags", fmt.Sprintf("Each tag must be at most %d characters.", SquadTagMax))
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) > SquadMaxTags {
		return nil, errs.Validation("Tags", fmt.Sprintf("A squad may have at most %d tags.", SquadMaxTags))
	}
	return out, nil
}

func validateDisplayName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < DisplayNameMin || n > DisplayNameMax {
		return errs.Validation("DisplayName", fmt.Sprintf("Display name must be between %d and %d characters.", DisplayNameMin, DisplayNameMax))
	}
	return nil
}

func validateLeetCodeUsername(name string) error {
	switch {
	case name == "":
		return errs.Validation("LeetCodeUsername", "LeetCode username is required.")
	case len(name) > LeetCodeNameMax:
		return errs.Validation("LeetCodeUsername", fmt.Sprintf("LeetCode username must be at most %d characters.", LeetCodeNameMax))
	case !leetCodeNameRE.MatchString(name):
		return errs.Validation("LeetCodeUsername", "LeetCode username may only contain letters, digits, '_' and '-'.")
	}
	return nil
}

func validateGitHubUsername(name string) error {
	switch {
	case name == "":
		return errs.Validation("GitHubUsername", "GitHub username is required.")
	case len(name) > GitHubNameMax:
		return errs.Validation("GitHubUsername", fmt.Sprintf("GitHub username must be at most %d characters.", GitHubNameMax))
	case !gitHubNameRE.MatchString(name):
		return errs.Validation("GitHubUsername", "GitHub username is not valid.")
	}
	return nil
}

func validateTheme(t domain.ProfileTheme) error {
	if !t.Valid() {
		return errs.Validation("ProfileTheme", fmt.Sprintf("Unknown profile theme %q.", t))
	}
	return nil
}

func validateReminder(s string) error {
	if s != "" && !reminderRE.MatchString(s) {
		return errs.Validation("StreakReminderTime", "Reminder time must be formatted as HH:MM.")
	}
	return nil
}

// limitOr returns def for non-positive limits. Upper bounds are enforced by
// the repositories.
func limitOr(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}
