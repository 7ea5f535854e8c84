package services

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-handoff-backend/internal/domain"
)

// displayName renders an operator's name for end users ("Ada Lovelace"),
// falling back to the operator id.
func displayName(a *domain.Agent, tag language.Tag) string {
	if a == nil {
		return ""
	}
	caser := cases.Title(tag)
	parts := make([]string, 0, 2)
	for _, p := range []string{a.Firstname, a.Lastname} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, caser.String(p))
		}
	}
	if len(parts) == 0 {
		return a.ID
	}
	return strings.Join(parts, " ")
}
