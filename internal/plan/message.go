package plan

import (
	"fmt"
	"strings"
	"time"
)

// zeroKind is the template every legacy or renamed zero-offset kind
// falls back to.
const zeroKind = "0_days"

// templates is derived from the same offsets that drive planning.
var templates = buildTemplates()

func buildTemplates() map[string]string {
	t := make(map[string]string)
	for _, b := range buckets {
		for _, o := range b.offsets {
			t[o.Kind()] = template(o)
		}
	}
	t[finalCountdown.Kind()] = template(finalCountdown)
	return t
}

func template(o Offset) string {
	if o.Value == 0 {
		return "Your subscription has expired (ended at %s). Renew to regain access."
	}
	return fmt.Sprintf("Your subscription expires in %s, at %%s.", phrase(o))
}

func phrase(o Offset) string {
	unit := string(o.Unit)
	if o.Value == 1 {
		unit = strings.TrimSuffix(unit, "s")
	}
	return fmt.Sprintf("%d %s", o.Value, unit)
}

// Message renders the reminder text for a kind.
//
// Unknown kinds that still carry the zero-offset pattern resolve to the
// zero-offset template, so rows written under a renamed kind keep
// working. Any other unknown kind reports false and is skipped by the
// caller.
func Message(kind string, validUntil time.Time) (string, bool) {
	tmpl, ok := templates[kind]
	if !ok {
		if !strings.HasPrefix(kind, "0_") {
			return "", false
		}
		tmpl = templates[zeroKind]
	}
	return fmt.Sprintf(tmpl, FormatTime(validUntil)), true
}

// FormatTime renders a timestamp the way subscribers see it in messages.
func FormatTime(t time.Time) string {
	return t.Format("2006-01-02 03:04 PM")
}
