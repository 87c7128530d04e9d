package atelier

import (
	"fmt"
	"math"
	"sync"
	"time"

	"linkatelier/api-gateway/models"
)

// Canvas tuning constants. Positions are canvas-space; pointer coordinates
// arrive in screen-space and are divided by the camera scale while dragging.
const (
	MinZoom       = 0.55
	MaxZoom       = 1.8
	zoomStep      = 0.1
	dragThreshold = 2.0

	// FlushDelay is the quiescence window before a layout write.
	FlushDelay = 650 * time.Millisecond

	// MobileBreakpoint is the viewport width below which the canvas degrades
	// to a scrollable list with no pan/zoom/connector interactions.
	MobileBreakpoint = 900
)

// DefaultCamera is the camera pose restored by Reset.
var DefaultCamera = Camera{X: 260, Y: 140, Scale: 1}

type Camera struct {
	X     float64
	Y     float64
	Scale float64
}

type Point struct {
	X float64
	Y float64
}

// CardSeed carries a card's identity and stored placement into a session.
// Nil placement fields fall back to the deterministic grid.
type CardSeed struct {
	ID string
	X  *float64
	Y  *float64
	Z  *int
}

// FlushFunc receives the debounced layout patch. It runs on the timer
// goroutine and its outcome never blocks interaction.
type FlushFunc func(patch LayoutPatch)

// LayoutPatch is the full layout snapshot sent after quiescence. Revision
// increases monotonically per flush so responses arriving out of order can be
// recognized as stale.
type LayoutPatch struct {
	BoardID    string
	ViewMode   string
	Groups     []models.AtelierGroup
	Connectors []models.AtelierConnector
	Cards      []models.AtelierCardLayout
	Revision   uint64
}

type panGesture struct {
	startX, startY   float64
	originX, originY float64
}

type dragGesture struct {
	cardID           string
	startX, startY   float64
	originX, originY float64
	moved            bool
}

// Canvas is the interactive state of one board's Atelier view: camera,
// per-card placement, z-order, connectors and in-flight pointer gestures.
// All state is owned by the session; there are no package-level maps.
type Canvas struct {
	mu sync.Mutex

	boardID string
	order   []string // card ids in listing order, drives grid defaults

	camera     Camera
	positions  map[string]Point
	zIndices   map[string]int
	nextZ      int
	viewMode   string
	groups     []models.AtelierGroup
	connectors []models.AtelierConnector

	// Last server-confirmed placement, used by Reset.
	persistedPositions map[string]Point
	persistedZ         map[string]int

	connectMode    bool
	connectorStart string
	connectorSeq   int

	pans  map[int]*panGesture
	drags map[int]*dragGesture

	viewportWidth int
	statusNote    string

	onSelect func(cardID string)
	flush    FlushFunc
	timer    *time.Timer
	revision uint64
	closed   bool
}

// NewCanvas builds a session from the board's cards and its last persisted
// layout. Construction itself never schedules a write; only subsequent
// mutations do.
func NewCanvas(boardID string, cards []CardSeed, layout *models.AtelierLayoutPayload, flush FlushFunc, onSelect func(cardID string)) *Canvas {
	c := &Canvas{
		boardID:            boardID,
		camera:             DefaultCamera,
		positions:          make(map[string]Point, len(cards)),
		zIndices:           make(map[string]int, len(cards)),
		persistedPositions: make(map[string]Point, len(cards)),
		persistedZ:         make(map[string]int, len(cards)),
		viewMode:           models.AtelierViewModeMinimal,
		pans:               make(map[int]*panGesture),
		drags:              make(map[int]*dragGesture),
		viewportWidth:      MobileBreakpoint + 1,
		onSelect:           onSelect,
		flush:              flush,
	}

	stored := make(map[string]models.AtelierCardLayout)
	if layout != nil {
		c.viewMode = NormalizeViewMode(layout.ViewMode)
		c.groups = layout.Groups
		c.connectors = append([]models.AtelierConnector(nil), layout.Connectors...)
		for _, entry := range layout.Cards {
			stored[entry.CardID] = entry
		}
	}

	for index, card := range cards {
		c.order = append(c.order, card.ID)

		pos, z, ok := placementFromLayout(stored, card.ID)
		if !ok {
			pos, z, ok = placementFromSeed(card)
		}
		if !ok {
			pos, z = DefaultPosition(index), 0
		}

		c.positions[card.ID] = pos
		c.zIndices[card.ID] = z
		c.persistedPositions[card.ID] = pos
		c.persistedZ[card.ID] = z
	}

	c.nextZ = maxZ(c.zIndices) + 1
	return c
}

func placementFromLayout(stored map[string]models.AtelierCardLayout, cardID string) (Point, int, bool) {
	entry, ok := stored[cardID]
	if !ok {
		return Point{}, 0, false
	}
	return Point{X: entry.X, Y: entry.Y}, entry.ZIndex, true
}

func placementFromSeed(card CardSeed) (Point, int, bool) {
	if card.X == nil || card.Y == nil {
		return Point{}, 0, false
	}
	z := 0
	if card.Z != nil {
		z = *card.Z
	}
	return Point{X: *card.X, Y: *card.Y}, z, true
}

// DefaultPosition lays cards out on a 4-wide grid with deterministic jitter
// derived from the card's index.
func DefaultPosition(index int) Point {
	column := index % 4
	row := index / 4
	jitterX := float64((index*37)%80 - 40)
	jitterY := float64((index*53)%70 - 35)

	return Point{
		X: float64(column)*380 + jitterX,
		Y: float64(row)*350 + jitterY,
	}
}

func maxZ(zIndices map[string]int) int {
	max := 0
	first := true
	for _, z := range zIndices {
		if first || z > max {
			max = z
			first = false
		}
	}
	return max
}

// Camera returns the current camera pose.
func (c *Canvas) Camera() Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.camera
}

// Position returns a card's current canvas-space position.
func (c *Canvas) Position(cardID string) (Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.positions[cardID]
	return p, ok
}

// ZIndex returns a card's current stacking order.
func (c *Canvas) ZIndex(cardID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zIndices[cardID]
}

// Connectors returns a copy of the current connector list.
func (c *Canvas) Connectors() []models.AtelierConnector {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.AtelierConnector(nil), c.connectors...)
}

// ViewMode returns the current view mode.
func (c *Canvas) ViewMode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMode
}

// StatusNote returns the last short status string shown to the user.
func (c *Canvas) StatusNote() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusNote
}

// SetViewportWidth records the viewport size. Below the breakpoint the canvas
// is list-only and pointer gestures are ignored.
func (c *Canvas) SetViewportWidth(px int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewportWidth = px
}

func (c *Canvas) interactive() bool {
	return c.viewportWidth > MobileBreakpoint
}

// PointerDownCanvas starts a pan gesture from empty canvas space.
func (c *Canvas) PointerDownCanvas(pointerID int, x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.interactive() {
		return
	}

	c.pans[pointerID] = &panGesture{
		startX:  x,
		startY:  y,
		originX: c.camera.X,
		originY: c.camera.Y,
	}
}

// PointerDownCard starts a drag gesture on a card, or advances the connect
// flow when connect mode is on.
func (c *Canvas) PointerDownCard(pointerID int, cardID string, x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.interactive() {
		return
	}
	if _, ok := c.positions[cardID]; !ok {
		return
	}

	if c.connectMode {
		c.connectTap(cardID)
		return
	}

	// Bring the card to the front immediately, before any movement.
	raised := c.nextZ
	c.nextZ++
	c.zIndices[cardID] = raised
	c.scheduleFlushLocked()

	pos := c.positions[cardID]
	c.drags[pointerID] = &dragGesture{
		cardID:  cardID,
		startX:  x,
		startY:  y,
		originX: pos.X,
		originY: pos.Y,
	}
}

func (c *Canvas) connectTap(cardID string) {
	if c.connectorStart == "" {
		c.connectorStart = cardID
		c.statusNote = "Select a second card to create a connector."
		return
	}

	if c.connectorStart == cardID {
		c.connectorStart = ""
		c.statusNote = "Connector start cleared."
		return
	}

	c.connectorSeq++
	style := "curved-dash"
	c.connectors = append(c.connectors, models.AtelierConnector{
		ID:         fmt.Sprintf("%s-%s-%d", c.connectorStart, cardID, c.connectorSeq),
		FromCardID: c.connectorStart,
		ToCardID:   cardID,
		Style:      &style,
	})
	c.connectorStart = ""
	c.statusNote = "Connector added."
	c.scheduleFlushLocked()
}

// PointerMove advances whichever gesture owns the pointer.
func (c *Canvas) PointerMove(pointerID int, x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pan, ok := c.pans[pointerID]; ok {
		c.camera.X = pan.originX + (x - pan.startX)
		c.camera.Y = pan.originY + (y - pan.startY)
		return
	}

	drag, ok := c.drags[pointerID]
	if !ok {
		return
	}

	dx := (x - drag.startX) / c.camera.Scale
	dy := (y - drag.startY) / c.camera.Scale

	if !drag.moved && math.Hypot(dx, dy) > dragThreshold {
		drag.moved = true
	}

	c.positions[drag.cardID] = Point{
		X: drag.originX + dx,
		Y: drag.originY + dy,
	}
	c.scheduleFlushLocked()
}

// PointerUp ends a gesture. A card release with net movement at or below the
// drag threshold is a select, not a drag.
func (c *Canvas) PointerUp(pointerID int) {
	c.mu.Lock()

	if _, ok := c.pans[pointerID]; ok {
		delete(c.pans, pointerID)
		c.mu.Unlock()
		return
	}

	drag, ok := c.drags[pointerID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.drags, pointerID)

	selected := ""
	if !drag.moved {
		selected = drag.cardID
	}
	onSelect := c.onSelect
	c.mu.Unlock()

	if selected != "" && onSelect != nil {
		onSelect(selected)
	}
}

// PointerCancel drops a gesture without select semantics.
func (c *Canvas) PointerCancel(pointerID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pans, pointerID)
	delete(c.drags, pointerID)
}

// Wheel zooms the camera in fixed steps, clamped to [MinZoom, MaxZoom]. Zoom
// is camera-anchored, not pointer-anchored.
func (c *Canvas) Wheel(deltaY float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.interactive() {
		return
	}

	delta := zoomStep
	if deltaY > 0 {
		delta = -zoomStep
	}

	next := c.camera.Scale + delta
	if next > MaxZoom {
		next = MaxZoom
	}
	if next < MinZoom {
		next = MinZoom
	}
	c.camera.Scale = next
}

// SetViewMode switches between minimal and dense card rendering.
func (c *Canvas) SetViewMode(mode string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	normalized := NormalizeViewMode(mode)
	if normalized == c.viewMode {
		return
	}
	c.viewMode = normalized
	if normalized == models.AtelierViewModeMinimal {
		c.statusNote = "Minimal board view"
	} else {
		c.statusNote = "Dense board view"
	}
	c.scheduleFlushLocked()
}

// ToggleConnectMode flips connect mode and clears any pending source card.
func (c *Canvas) ToggleConnectMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connectMode = !c.connectMode
	c.connectorStart = ""
	if c.connectMode {
		c.statusNote = "Connector mode on."
	} else {
		c.statusNote = "Connector mode off."
	}
	return c.connectMode
}

// ClearConnectors removes every connector.
func (c *Canvas) ClearConnectors() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connectors = nil
	c.connectorStart = ""
	c.statusNote = "Connectors cleared."
	c.scheduleFlushLocked()
}

// Reset restores the default camera and the last persisted placement of every
// card. Cards that were never persisted return to their grid defaults.
func (c *Canvas) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.camera = DefaultCamera
	for index, cardID := range c.order {
		if pos, ok := c.persistedPositions[cardID]; ok {
			c.positions[cardID] = pos
		} else {
			c.positions[cardID] = DefaultPosition(index)
		}
		c.zIndices[cardID] = c.persistedZ[cardID]
	}
	c.nextZ = maxZ(c.zIndices) + 1
	c.statusNote = "Canvas reset."
	c.scheduleFlushLocked()
}

// scheduleFlushLocked (re)arms the single-shot quiescence timer. Callers hold
// c.mu.
func (c *Canvas) scheduleFlushLocked() {
	if c.flush == nil || c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(FlushDelay, c.fireFlush)
}

func (c *Canvas) fireFlush() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.revision++
	patch := c.snapshotLocked()
	flush := c.flush
	c.mu.Unlock()

	flush(patch)
}

// snapshotLocked assembles the full layout patch from current state.
func (c *Canvas) snapshotLocked() LayoutPatch {
	cards := make([]models.AtelierCardLayout, 0, len(c.order))
	for index, cardID := range c.order {
		pos, ok := c.positions[cardID]
		if !ok {
			pos = DefaultPosition(index)
		}
		cards = append(cards, models.AtelierCardLayout{
			CardID: cardID,
			X:      pos.X,
			Y:      pos.Y,
			ZIndex: c.zIndices[cardID],
		})
	}

	return LayoutPatch{
		BoardID:    c.boardID,
		ViewMode:   c.viewMode,
		Groups:     c.groups,
		Connectors: append([]models.AtelierConnector(nil), c.connectors...),
		Cards:      cards,
		Revision:   c.revision,
	}
}

// Flush sends any pending changes immediately, bypassing the quiescence
// window. No-op when nothing was scheduled.
func (c *Canvas) Flush() {
	c.mu.Lock()
	timer := c.timer
	c.timer = nil
	c.mu.Unlock()

	if timer != nil && timer.Stop() {
		c.fireFlush()
	}
}

// ConfirmFlush records a server-confirmed snapshot for the given revision.
// Stale confirmations (an earlier flush answered after a later one) are
// discarded and reported as false.
func (c *Canvas) ConfirmFlush(revision uint64, confirmed *models.AtelierLayoutPayload) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if revision < c.revision {
		return false
	}
	if confirmed == nil {
		return true
	}

	for _, entry := range confirmed.Cards {
		c.persistedPositions[entry.CardID] = Point{X: entry.X, Y: entry.Y}
		c.persistedZ[entry.CardID] = entry.ZIndex
	}
	return true
}

// Close stops the pending timer. Any change not yet flushed is dropped, which
// matches the fire-and-forget persistence policy.
func (c *Canvas) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
