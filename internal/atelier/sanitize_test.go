package atelier

import (
	"encoding/json"
	"math"
	"testing"

	"linkatelier/api-gateway/models"
)

// decode mirrors how handler payloads arrive: generic JSON values.
func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("bad test fixture: %v", err)
	}
	return v
}

func TestFiniteNumber(t *testing.T) {
	if got := FiniteNumber(12.5, 0); got != 12.5 {
		t.Errorf("FiniteNumber(12.5) = %v", got)
	}
	if got := FiniteNumber("12", 0); got != 0 {
		t.Errorf("FiniteNumber(string) = %v, want fallback", got)
	}
	if got := FiniteNumber(nil, 7); got != 7 {
		t.Errorf("FiniteNumber(nil) = %v, want 7", got)
	}
	if got := FiniteNumber(math.Inf(1), 3); got != 3 {
		t.Errorf("FiniteNumber(+Inf) = %v, want 3", got)
	}
	if got := FiniteNumber(math.NaN(), 3); got != 3 {
		t.Errorf("FiniteNumber(NaN) = %v, want 3", got)
	}
}

func TestFiniteIntTruncatesTowardZero(t *testing.T) {
	if got := FiniteInt(9.99, 0); got != 9 {
		t.Errorf("FiniteInt(9.99) = %d, want 9", got)
	}
	if got := FiniteInt(-9.99, 0); got != -9 {
		t.Errorf("FiniteInt(-9.99) = %d, want -9", got)
	}
	if got := FiniteInt("x", 4); got != 4 {
		t.Errorf("FiniteInt(non-number) = %d, want fallback", got)
	}
}

func TestNormalizeViewMode(t *testing.T) {
	if got := NormalizeViewMode("dense"); got != models.AtelierViewModeDense {
		t.Errorf("NormalizeViewMode(dense) = %q", got)
	}
	for _, v := range []string{"minimal", "huge", "", "DENSE"} {
		want := models.AtelierViewModeMinimal
		if v == "minimal" {
			want = models.AtelierViewModeMinimal
		}
		if got := NormalizeViewMode(v); got != want {
			t.Errorf("NormalizeViewMode(%q) = %q, want %q", v, got, want)
		}
	}
}

func TestParseViewModeStrict(t *testing.T) {
	if _, ok := ParseViewMode("huge"); ok {
		t.Error("ParseViewMode accepted an unknown mode")
	}
	if _, ok := ParseViewMode(42); ok {
		t.Error("ParseViewMode accepted a number")
	}
	if mode, ok := ParseViewMode("dense"); !ok || mode != "dense" {
		t.Errorf("ParseViewMode(dense) = (%q, %v)", mode, ok)
	}
}

func TestSanitizeGroups(t *testing.T) {
	raw := `[
		{"id": "g1", "cardIds": ["a", " b ", "", 3], "label": "Jazz", "meta": {"k": 1}},
		{"id": "  "},
		{"cardIds": ["a"]},
		"not-an-object",
		{"id": "g2", "meta": ["array", "meta"], "color": "#fff"}
	]`

	groups := SanitizeGroups(decode(t, raw))
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}

	g1 := groups[0]
	if g1.ID != "g1" || len(g1.CardIDs) != 2 || g1.CardIDs[1] != "b" {
		t.Errorf("unexpected first group: %+v", g1)
	}
	if g1.Label == nil || *g1.Label != "Jazz" {
		t.Errorf("label not kept: %+v", g1.Label)
	}
	if g1.Meta == nil || g1.Meta["k"] != float64(1) {
		t.Errorf("object meta not kept: %+v", g1.Meta)
	}

	g2 := groups[1]
	if g2.Meta != nil {
		t.Errorf("array meta should be dropped, got %+v", g2.Meta)
	}
	if g2.Color == nil || *g2.Color != "#fff" {
		t.Errorf("color not kept: %+v", g2.Color)
	}
}

func TestSanitizeGroupsNonArray(t *testing.T) {
	if got := SanitizeGroups("not-an-array"); len(got) != 0 {
		t.Errorf("expected empty slice for non-array input, got %+v", got)
	}
}

func TestSanitizeConnectors(t *testing.T) {
	raw := `[
		{"id": "c1", "fromCardId": "a", "toCardId": "b", "style": "curved-dash"},
		{"id": "c2", "fromCardId": "a"},
		{"fromCardId": "a", "toCardId": "b"},
		{"id": "c3", "fromCardId": " ", "toCardId": "b"}
	]`

	connectors := SanitizeConnectors(decode(t, raw))
	if len(connectors) != 1 {
		t.Fatalf("got %d connectors, want 1", len(connectors))
	}
	c := connectors[0]
	if c.ID != "c1" || c.FromCardID != "a" || c.ToCardID != "b" {
		t.Errorf("unexpected connector: %+v", c)
	}
	if c.Style == nil || *c.Style != "curved-dash" {
		t.Errorf("style not kept: %+v", c.Style)
	}
	if c.Label != nil {
		t.Errorf("label should default to nil, got %+v", c.Label)
	}
}

func TestSanitizeCardPatches(t *testing.T) {
	raw := `[
		{"cardId": "a", "x": 10.5, "y": 20, "zIndex": 3.9},
		{"cardId": "b"},
		{"cardId": "c", "x": "ten"},
		{"x": 1, "y": 2},
		{"cardId": "d", "zIndex": -2.7}
	]`

	patches := SanitizeCardPatches(decode(t, raw))
	if len(patches) != 2 {
		t.Fatalf("got %d patches, want 2", len(patches))
	}

	a := patches[0]
	if a.CardID != "a" || a.X == nil || *a.X != 10.5 || a.Y == nil || *a.Y != 20 {
		t.Errorf("unexpected patch a: %+v", a)
	}
	if a.ZIndex == nil || *a.ZIndex != 3 {
		t.Errorf("zIndex should truncate 3.9 to 3, got %+v", a.ZIndex)
	}

	d := patches[1]
	if d.CardID != "d" || d.ZIndex == nil || *d.ZIndex != -2 {
		t.Errorf("zIndex should truncate -2.7 to -2, got %+v", d.ZIndex)
	}
}

func TestDedupeCardPatchesKeepsLast(t *testing.T) {
	x1, x2, x3 := 1.0, 2.0, 3.0
	patches := []models.AtelierCardLayoutPatch{
		{CardID: "a", X: &x1},
		{CardID: "b", X: &x2},
		{CardID: "a", X: &x3},
	}

	deduped := DedupeCardPatches(patches)
	if len(deduped) != 2 {
		t.Fatalf("got %d patches, want 2", len(deduped))
	}
	if deduped[0].CardID != "b" {
		t.Errorf("expected b to survive first, got %q", deduped[0].CardID)
	}
	if deduped[1].CardID != "a" || *deduped[1].X != 3.0 {
		t.Errorf("expected last a occurrence to win, got %+v", deduped[1])
	}
}

func TestMissingCardIDs(t *testing.T) {
	x := 5.0
	patches := []models.AtelierCardLayoutPatch{
		{CardID: "known", X: &x},
		{CardID: "does-not-exist", X: &x},
	}
	existing := map[string]bool{"known": true}

	missing := MissingCardIDs(patches, existing)
	if len(missing) != 1 || missing[0] != "does-not-exist" {
		t.Errorf("MissingCardIDs = %v", missing)
	}
}
