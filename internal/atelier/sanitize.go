// Package atelier implements the spatial-canvas layout subsystem: the shared
// sanitization rules for layout payloads and the interactive canvas session.
package atelier

import (
	"encoding/json"
	"math"
	"strings"

	"linkatelier/api-gateway/models"
)

// FiniteNumber coerces arbitrary decoded JSON to a finite float64, returning
// fallback for anything non-numeric or non-finite.
func FiniteNumber(value interface{}, fallback float64) float64 {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return fallback
		}
		f = parsed
	default:
		return fallback
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return f
}

// FiniteInt is FiniteNumber truncated toward zero, for integer columns.
func FiniteInt(value interface{}, fallback int) int {
	return int(math.Trunc(FiniteNumber(value, float64(fallback))))
}

// NormalizeViewMode maps any stored value outside the known modes to minimal.
func NormalizeViewMode(value string) string {
	if value == models.AtelierViewModeDense {
		return models.AtelierViewModeDense
	}
	return models.AtelierViewModeMinimal
}

// ParseViewMode validates a request-supplied view mode strictly.
func ParseViewMode(value interface{}) (string, bool) {
	s, ok := value.(string)
	if !ok {
		return "", false
	}
	if s == models.AtelierViewModeMinimal || s == models.AtelierViewModeDense {
		return s, true
	}
	return "", false
}

func optionalString(value interface{}) *string {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// optionalMeta passes metadata through only when it is a non-array JSON
// object.
func optionalMeta(value interface{}) map[string]interface{} {
	m, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	return m
}

func asRecord(value interface{}) (map[string]interface{}, bool) {
	m, ok := value.(map[string]interface{})
	return m, ok
}

// SanitizeGroups filters decoded JSON down to well-formed groups. Malformed
// elements are dropped, not rejected.
func SanitizeGroups(value interface{}) []models.AtelierGroup {
	entries, ok := value.([]interface{})
	if !ok {
		return []models.AtelierGroup{}
	}

	groups := make([]models.AtelierGroup, 0, len(entries))
	for _, entry := range entries {
		record, ok := asRecord(entry)
		if !ok {
			continue
		}
		id := optionalString(record["id"])
		if id == nil {
			continue
		}

		cardIDs := []string{}
		if rawIDs, ok := record["cardIds"].([]interface{}); ok {
			for _, rawID := range rawIDs {
				if s, ok := rawID.(string); ok {
					if trimmed := strings.TrimSpace(s); trimmed != "" {
						cardIDs = append(cardIDs, trimmed)
					}
				}
			}
		}

		groups = append(groups, models.AtelierGroup{
			ID:      *id,
			CardIDs: cardIDs,
			Label:   optionalString(record["label"]),
			Color:   optionalString(record["color"]),
			Meta:    optionalMeta(record["meta"]),
		})
	}

	return groups
}

// SanitizeConnectors filters decoded JSON down to well-formed connectors.
func SanitizeConnectors(value interface{}) []models.AtelierConnector {
	entries, ok := value.([]interface{})
	if !ok {
		return []models.AtelierConnector{}
	}

	connectors := make([]models.AtelierConnector, 0, len(entries))
	for _, entry := range entries {
		record, ok := asRecord(entry)
		if !ok {
			continue
		}
		id := optionalString(record["id"])
		from := optionalString(record["fromCardId"])
		to := optionalString(record["toCardId"])
		if id == nil || from == nil || to == nil {
			continue
		}

		connectors = append(connectors, models.AtelierConnector{
			ID:         *id,
			FromCardID: *from,
			ToCardID:   *to,
			Label:      optionalString(record["label"]),
			Style:      optionalString(record["style"]),
			Meta:       optionalMeta(record["meta"]),
		})
	}

	return connectors
}

// SanitizeCardPatches keeps patches that name a card and carry at least one
// finite coordinate. zIndex is truncated toward zero on acceptance.
func SanitizeCardPatches(value interface{}) []models.AtelierCardLayoutPatch {
	entries, ok := value.([]interface{})
	if !ok {
		return []models.AtelierCardLayoutPatch{}
	}

	patches := make([]models.AtelierCardLayoutPatch, 0, len(entries))
	for _, entry := range entries {
		record, ok := asRecord(entry)
		if !ok {
			continue
		}
		cardID := optionalString(record["cardId"])
		if cardID == nil {
			continue
		}

		patch := models.AtelierCardLayoutPatch{CardID: *cardID}
		if x, ok := finiteField(record, "x"); ok {
			patch.X = &x
		}
		if y, ok := finiteField(record, "y"); ok {
			patch.Y = &y
		}
		if z, ok := finiteField(record, "zIndex"); ok {
			truncated := int(math.Trunc(z))
			patch.ZIndex = &truncated
		}

		if patch.X == nil && patch.Y == nil && patch.ZIndex == nil {
			continue
		}
		patches = append(patches, patch)
	}

	return patches
}

func finiteField(record map[string]interface{}, key string) (float64, bool) {
	raw, present := record[key]
	if !present {
		return 0, false
	}
	f := FiniteNumber(raw, math.NaN())
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// DedupeCardPatches keeps the last occurrence per card id, preserving the
// input order of the survivors.
func DedupeCardPatches(patches []models.AtelierCardLayoutPatch) []models.AtelierCardLayoutPatch {
	last := make(map[string]int, len(patches))
	for i, patch := range patches {
		last[patch.CardID] = i
	}

	deduped := make([]models.AtelierCardLayoutPatch, 0, len(last))
	for i, patch := range patches {
		if last[patch.CardID] == i {
			deduped = append(deduped, patch)
		}
	}
	return deduped
}

// MissingCardIDs reports which patched ids are absent from the board's live
// card set, in patch order.
func MissingCardIDs(patches []models.AtelierCardLayoutPatch, existing map[string]bool) []string {
	missing := []string{}
	for _, patch := range patches {
		if !existing[patch.CardID] {
			missing = append(missing, patch.CardID)
		}
	}
	return missing
}
