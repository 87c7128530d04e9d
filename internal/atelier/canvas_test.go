package atelier

import (
	"sync"
	"testing"
	"time"

	"linkatelier/api-gateway/models"
)

func seedCards(n int) []CardSeed {
	cards := make([]CardSeed, 0, n)
	for i := 0; i < n; i++ {
		cards = append(cards, CardSeed{ID: string(rune('a' + i))})
	}
	return cards
}

// patchRecorder collects flushed patches for assertions.
type patchRecorder struct {
	mu      sync.Mutex
	patches []LayoutPatch
	fired   chan struct{}
}

func newPatchRecorder() *patchRecorder {
	return &patchRecorder{fired: make(chan struct{}, 16)}
}

func (r *patchRecorder) flush(patch LayoutPatch) {
	r.mu.Lock()
	r.patches = append(r.patches, patch)
	r.mu.Unlock()
	r.fired <- struct{}{}
}

func (r *patchRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.patches)
}

func (r *patchRecorder) last() LayoutPatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.patches[len(r.patches)-1]
}

func (r *patchRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.fired:
	case <-time.After(5 * FlushDelay):
		t.Fatal("timed out waiting for flush")
	}
}

func TestDefaultPositionGrid(t *testing.T) {
	for index := 0; index < 12; index++ {
		got := DefaultPosition(index)
		wantX := float64(index%4)*380 + float64((index*37)%80-40)
		wantY := float64(index/4)*350 + float64((index*53)%70-35)
		if got.X != wantX || got.Y != wantY {
			t.Errorf("DefaultPosition(%d) = %+v, want (%v, %v)", index, got, wantX, wantY)
		}
	}

	// Deterministic across calls.
	if DefaultPosition(7) != DefaultPosition(7) {
		t.Error("DefaultPosition not deterministic")
	}
}

func TestNewCanvasSeedsPlacement(t *testing.T) {
	x, y := 100.0, 200.0
	z := 5
	cards := []CardSeed{
		{ID: "stored", X: &x, Y: &y, Z: &z},
		{ID: "fresh"},
	}

	c := NewCanvas("b1", cards, nil, nil, nil)
	defer c.Close()

	if pos, _ := c.Position("stored"); pos.X != 100 || pos.Y != 200 {
		t.Errorf("stored card position = %+v", pos)
	}
	if got := c.ZIndex("stored"); got != 5 {
		t.Errorf("stored card z = %d", got)
	}
	if pos, _ := c.Position("fresh"); pos != DefaultPosition(1) {
		t.Errorf("fresh card should take grid default, got %+v", pos)
	}
	if got := c.ZIndex("fresh"); got != 0 {
		t.Errorf("fresh card z = %d, want 0", got)
	}
}

func TestLayoutOverridesSeed(t *testing.T) {
	seedX, seedY := 1.0, 2.0
	cards := []CardSeed{{ID: "a", X: &seedX, Y: &seedY}}
	layout := &models.AtelierLayoutPayload{
		ViewMode: "dense",
		Cards:    []models.AtelierCardLayout{{CardID: "a", X: 50, Y: 60, ZIndex: 3}},
	}

	c := NewCanvas("b1", cards, layout, nil, nil)
	defer c.Close()

	if pos, _ := c.Position("a"); pos.X != 50 || pos.Y != 60 {
		t.Errorf("layout should win over seed, got %+v", pos)
	}
	if c.ViewMode() != models.AtelierViewModeDense {
		t.Errorf("view mode = %q", c.ViewMode())
	}
}

func TestPanMovesCamera(t *testing.T) {
	c := NewCanvas("b1", seedCards(1), nil, nil, nil)
	defer c.Close()

	c.PointerDownCanvas(1, 500, 500)
	c.PointerMove(1, 530, 480)
	c.PointerUp(1)

	cam := c.Camera()
	if cam.X != DefaultCamera.X+30 || cam.Y != DefaultCamera.Y-20 {
		t.Errorf("camera = %+v", cam)
	}
}

func TestDragScalesByZoom(t *testing.T) {
	c := NewCanvas("b1", seedCards(1), nil, nil, nil)
	defer c.Close()

	// Zoom out to 0.5x... clamped at 0.55 after five steps down from 1.0.
	for i := 0; i < 5; i++ {
		c.Wheel(1)
	}
	if got := c.Camera().Scale; got != MinZoom {
		t.Fatalf("scale = %v, want clamp at %v", got, MinZoom)
	}

	start, _ := c.Position("a")
	c.PointerDownCard(2, "a", 0, 0)
	c.PointerMove(2, 11, 0)
	c.PointerUp(2)

	got, _ := c.Position("a")
	wantX := start.X + 11/MinZoom
	if got.X != wantX || got.Y != start.Y {
		t.Errorf("drag end = %+v, want X=%v", got, wantX)
	}
}

func TestZoomClampUpper(t *testing.T) {
	c := NewCanvas("b1", seedCards(1), nil, nil, nil)
	defer c.Close()

	for i := 0; i < 20; i++ {
		c.Wheel(-1)
	}
	if got := c.Camera().Scale; got != MaxZoom {
		t.Errorf("scale = %v, want clamp at %v", got, MaxZoom)
	}
}

func TestClickSelectsInsteadOfDragging(t *testing.T) {
	var selected string
	c := NewCanvas("b1", seedCards(1), nil, nil, func(cardID string) { selected = cardID })
	defer c.Close()

	c.PointerDownCard(1, "a", 100, 100)
	c.PointerMove(1, 101, 101) // under the 2px threshold
	c.PointerUp(1)

	if selected != "a" {
		t.Errorf("expected select callback for a sub-threshold release, got %q", selected)
	}

	selected = ""
	c.PointerDownCard(2, "a", 100, 100)
	c.PointerMove(2, 160, 100)
	c.PointerUp(2)
	if selected != "" {
		t.Errorf("real drag must not select, got %q", selected)
	}
}

func TestZIndexMonotonicity(t *testing.T) {
	c := NewCanvas("b1", seedCards(2), nil, nil, nil)
	defer c.Close()

	press := func(id string) {
		c.PointerDownCard(1, id, 0, 0)
		c.PointerMove(1, 50, 50)
		c.PointerUp(1)
	}

	press("a")
	press("b")
	press("a")

	if za, zb := c.ZIndex("a"), c.ZIndex("b"); za <= zb {
		t.Errorf("most recently dragged card must be front-most: a=%d b=%d", za, zb)
	}
}

func TestConnectModeFlow(t *testing.T) {
	c := NewCanvas("b1", seedCards(3), nil, nil, nil)
	defer c.Close()

	if !c.ToggleConnectMode() {
		t.Fatal("connect mode should be on")
	}

	// Same card twice cancels the pending source.
	c.PointerDownCard(1, "a", 0, 0)
	c.PointerDownCard(1, "a", 0, 0)
	if got := c.Connectors(); len(got) != 0 {
		t.Fatalf("cancelled source produced connectors: %+v", got)
	}

	c.PointerDownCard(1, "a", 0, 0)
	c.PointerDownCard(1, "b", 0, 0)
	got := c.Connectors()
	if len(got) != 1 {
		t.Fatalf("got %d connectors, want 1", len(got))
	}
	if got[0].FromCardID != "a" || got[0].ToCardID != "b" {
		t.Errorf("connector = %+v", got[0])
	}
	if got[0].Style == nil || *got[0].Style != "curved-dash" {
		t.Errorf("connector style = %+v", got[0].Style)
	}

	// Connect mode suppresses dragging.
	before, _ := c.Position("c")
	c.PointerDownCard(2, "c", 0, 0)
	c.PointerMove(2, 80, 80)
	c.PointerUp(2)
	if after, _ := c.Position("c"); after != before {
		t.Errorf("card moved during connect mode: %+v -> %+v", before, after)
	}
}

func TestDebounceCollapsesChanges(t *testing.T) {
	rec := newPatchRecorder()
	c := NewCanvas("b1", seedCards(2), nil, rec.flush, nil)
	defer c.Close()

	// A burst of changes within the window yields one flush.
	c.SetViewMode("dense")
	c.PointerDownCard(1, "a", 0, 0)
	c.PointerMove(1, 40, 40)
	c.PointerUp(1)

	rec.wait(t)
	time.Sleep(2 * FlushDelay)

	if got := rec.count(); got != 1 {
		t.Fatalf("got %d flushes, want 1", got)
	}

	patch := rec.last()
	if patch.ViewMode != "dense" {
		t.Errorf("patch view mode = %q", patch.ViewMode)
	}
	if len(patch.Cards) != 2 {
		t.Errorf("patch should carry every card, got %d", len(patch.Cards))
	}
	if patch.Revision != 1 {
		t.Errorf("revision = %d, want 1", patch.Revision)
	}
}

func TestConstructionDoesNotFlush(t *testing.T) {
	rec := newPatchRecorder()
	c := NewCanvas("b1", seedCards(3), &models.AtelierLayoutPayload{ViewMode: "dense"}, rec.flush, nil)
	defer c.Close()

	time.Sleep(2 * FlushDelay)
	if got := rec.count(); got != 0 {
		t.Errorf("loading persisted state must not schedule a write, got %d flushes", got)
	}
}

func TestStaleConfirmDiscarded(t *testing.T) {
	rec := newPatchRecorder()
	c := NewCanvas("b1", seedCards(1), nil, rec.flush, nil)
	defer c.Close()

	c.SetViewMode("dense")
	rec.wait(t)
	first := rec.last()

	c.SetViewMode("minimal")
	rec.wait(t)
	second := rec.last()

	if ok := c.ConfirmFlush(second.Revision, nil); !ok {
		t.Error("latest confirmation must be accepted")
	}
	if ok := c.ConfirmFlush(first.Revision, nil); ok {
		t.Error("stale confirmation must be discarded")
	}
}

func TestResetRestoresPersistedPlacement(t *testing.T) {
	x, y := 10.0, 20.0
	z := 2
	cards := []CardSeed{{ID: "a", X: &x, Y: &y, Z: &z}, {ID: "b"}}
	c := NewCanvas("b1", cards, nil, nil, nil)
	defer c.Close()

	c.PointerDownCard(1, "a", 0, 0)
	c.PointerMove(1, 300, 300)
	c.PointerUp(1)
	c.Reset()

	if cam := c.Camera(); cam != DefaultCamera {
		t.Errorf("camera after reset = %+v", cam)
	}
	if pos, _ := c.Position("a"); pos.X != 10 || pos.Y != 20 {
		t.Errorf("reset should restore persisted position, got %+v", pos)
	}
	if got := c.ZIndex("a"); got != 2 {
		t.Errorf("reset should restore persisted z, got %d", got)
	}
	if pos, _ := c.Position("b"); pos != DefaultPosition(1) {
		t.Errorf("never-persisted card should return to grid default, got %+v", pos)
	}
}

func TestMobileViewportDisablesCanvas(t *testing.T) {
	c := NewCanvas("b1", seedCards(1), nil, nil, nil)
	defer c.Close()
	c.SetViewportWidth(MobileBreakpoint - 1)

	before, _ := c.Position("a")
	c.PointerDownCard(1, "a", 0, 0)
	c.PointerMove(1, 100, 100)
	c.PointerUp(1)
	c.Wheel(-1)

	if after, _ := c.Position("a"); after != before {
		t.Errorf("card moved on a mobile viewport: %+v", after)
	}
	if got := c.Camera().Scale; got != 1 {
		t.Errorf("zoom applied on a mobile viewport: %v", got)
	}
}
