package assessment

import (
	"regexp"
	"sort"
	"strings"

	"github.com/WailSalutem-Health-Care/emr-service/internal/apperr"
	"github.com/WailSalutem-Health-Care/emr-service/internal/clinical"
)

// legacyPrefix matches the prefixes older notes used to name their body part:
// "HEAD: text", "[HEAD] text" and "HEAD - text".
var legacyPrefix = regexp.MustCompile(`(?s)^\s*(?:\[([A-Za-z ]+)\]|([A-Za-z ]+?)\s*:|([A-Za-z ]+?)\s+-)\s*(.*)$`)

// ParseLegacy splits a legacy note into its canonical body part and text.
func ParseLegacy(content string) (label, text string, ok bool) {
	m := legacyPrefix.FindStringSubmatch(content)
	if m == nil {
		return "", "", false
	}
	candidate := m[1] + m[2] + m[3]
	label, ok = clinical.LabelForKey(strings.ToUpper(strings.TrimSpace(candidate)))
	if !ok {
		return "", "", false
	}
	return label, strings.TrimSpace(m[4]), true
}

// legacyNoteIDs returns the ids of the legacy notes among notes whose
// prefix names one of labels. It reads prefixes with ParseLegacy, so the
// notes it selects are the ones Merge would show for those body parts.
func legacyNoteIDs(notes []Note, labels []string) []int64 {
	want := make(map[string]bool, len(labels))
	for _, l := range labels {
		want[l] = true
	}

	var ids []int64
	for _, n := range notes {
		if n.BodyPart != "" {
			continue
		}
		if label, _, ok := ParseLegacy(n.Content); ok && want[label] {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// Merge folds stored notes into the client view keyed by body part.
// notes must be ordered newest first. Structured notes always win; among
// legacy notes the first match for a body part wins.
func Merge(notes []Note) map[string]string {
	out := make(map[string]string)

	for _, n := range notes {
		if n.BodyPart == "" {
			continue
		}
		if key, ok := clinical.KeyForLabel(n.BodyPart); ok {
			if _, seen := out[key]; !seen {
				out[key] = n.Content
			}
		}
	}

	for _, n := range notes {
		if n.BodyPart != "" {
			continue
		}
		label, text, ok := ParseLegacy(n.Content)
		if !ok {
			continue
		}
		key, _ := clinical.KeyForLabel(label)
		if _, seen := out[key]; !seen {
			out[key] = text
		}
	}
	return out
}

// plan resolves client keys and splits entries into writes and clears,
// both in canonical body part order.
func plan(entries map[string]string) (writes []Write, clears []string, err error) {
	byLabel := make(map[string]string, len(entries))
	var unknown []string
	for key, text := range entries {
		label, ok := clinical.LabelForKey(key)
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		if _, dup := byLabel[label]; dup {
			return nil, nil, apperr.Validationf("body part %s given more than once", label)
		}
		byLabel[label] = text
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, nil, apperr.Validationf("unknown body part keys: %s", strings.Join(unknown, ", ")).
			WithDetails(map[string][]string{"unknownKeys": unknown})
	}

	for _, bp := range clinical.BodyParts {
		text, ok := byLabel[bp.Label]
		if !ok {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			clears = append(clears, bp.Label)
			continue
		}
		writes = append(writes, Write{BodyPart: bp.Label, Section: clinical.SectionFor(bp.Label), Content: text})
	}
	return writes, clears, nil
}
