package pipe

import (
	"fmt"
	"strings"

	"github.com/tbourn/go-handoff-backend/internal/domain"
)

// kind describes a message-carrying event type.
type kind struct {
	// preview renders the short text shown for a pending handoff.
	preview func(p domain.JSONMap) string
}

func field(name, fallback string) func(domain.JSONMap) string {
	return func(p domain.JSONMap) string {
		if s := strings.TrimSpace(p.String(name)); s != "" {
			return s
		}
		return fallback
	}
}

// kinds is the table of event types that carry a conversational message.
// Anything absent is not piped.
var kinds = map[string]kind{
	"text":        {preview: field("text", "")},
	"image":       {preview: field("title", "[image]")},
	"file":        {preview: field("title", "[file]")},
	"audio":       {preview: field("title", "[audio]")},
	"video":       {preview: field("title", "[video]")},
	"card":        {preview: field("title", "[card]")},
	"carousel":    {preview: carouselPreview},
	"quick_reply": {preview: field("text", "")},
	"location":    {preview: locationPreview},
}

// lookupKind returns the table entry of typ.
func lookupKind(typ string) (kind, bool) {
	k, ok := kinds[strings.ToLower(strings.TrimSpace(typ))]
	return k, ok
}

// IsMessage reports whether events of type typ are piped.
func IsMessage(typ string) bool {
	_, ok := lookupKind(typ)
	return ok
}

func carouselPreview(p domain.JSONMap) string {
	items, _ := p["items"].([]any)
	if len(items) == 0 {
		return "[carousel]"
	}
	return fmt.Sprintf("[carousel: %d items]", len(items))
}

func locationPreview(p domain.JSONMap) string {
	if t := strings.TrimSpace(p.String("title")); t != "" {
		return t
	}
	lat, latOK := p["latitude"].(float64)
	lng, lngOK := p["longitude"].(float64)
	if latOK && lngOK {
		return fmt.Sprintf("[location %.5f,%.5f]", lat, lng)
	}
	return "[location]"
}
