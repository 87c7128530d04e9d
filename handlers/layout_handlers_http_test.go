package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	supa "github.com/supabase-community/supabase-go"

	"linkatelier/api-gateway/middleware"
)

const (
	testBoardID   = "11111111-1111-1111-1111-111111111111"
	testCreatorID = "22222222-2222-2222-2222-222222222222"
	testCardA     = "33333333-3333-3333-3333-333333333333"
	testCardB     = "44444444-4444-4444-4444-444444444444"
)

// fakeRest emulates the PostgREST endpoints the layout handlers touch. It
// records PATCH bodies so tests can assert what was written.
type fakeRest struct {
	mu           sync.Mutex
	boardRow     map[string]interface{}
	cardRows     []map[string]interface{}
	boardPatches []map[string]interface{}
	cardPatches  []map[string]interface{}
}

func (f *fakeRest) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/boards"):
			rows := []map[string]interface{}{}
			if f.boardRow != nil && r.URL.Query().Get("id") == "eq."+f.boardRow["id"].(string) {
				rows = append(rows, f.boardRow)
			}
			json.NewEncoder(w).Encode(rows)

		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/cards"):
			json.NewEncoder(w).Encode(f.cardRows)

		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/board_members"):
			json.NewEncoder(w).Encode([]map[string]interface{}{})

		case r.Method == http.MethodPatch && strings.HasSuffix(r.URL.Path, "/boards"):
			f.boardPatches = append(f.boardPatches, decodePatch(r.Body))
			w.Write([]byte("[]"))

		case r.Method == http.MethodPatch && strings.HasSuffix(r.URL.Path, "/cards"):
			f.cardPatches = append(f.cardPatches, decodePatch(r.Body))
			w.Write([]byte("[]"))

		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("[]"))
		}
	}
}

func decodePatch(body io.Reader) map[string]interface{} {
	var patch map[string]interface{}
	json.NewDecoder(body).Decode(&patch)
	return patch
}

func defaultBoardRow(isPublic bool) map[string]interface{} {
	return map[string]interface{}{
		"id":                testBoardID,
		"creator_id":        testCreatorID,
		"title":             "Research",
		"slug":              "research",
		"is_public":         isPublic,
		"created_at":        "2026-01-10T12:00:00Z",
		"atelier_view_mode": "weird-mode",
		"atelier_groups":    []interface{}{map[string]interface{}{"id": "g1", "cardIds": []interface{}{testCardA}}},
	}
}

func defaultCardRows() []map[string]interface{} {
	return []map[string]interface{}{
		{"id": testCardA, "atelier_x": 120.5, "atelier_y": -40.0, "atelier_z": 3.0},
		{"id": testCardB},
	}
}

func newLayoutTestApp(t *testing.T, fake *fakeRest, userID string) *fiber.App {
	t.Helper()

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, err := supa.NewClient(srv.URL, "test-key", nil)
	if err != nil {
		t.Fatalf("supabase client: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := NewApplicationHandler(logger, client)

	app := fiber.New()
	setUser := func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals(middleware.UserIDKey, userID)
		}
		return c.Next()
	}
	app.Get("/api/v1/boards/:boardId/atelier-layout", setUser, h.GetAtelierLayout)
	app.Patch("/api/v1/boards/:boardId/atelier-layout", setUser, h.PatchAtelierLayout)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp.StatusCode, decoded
}

func TestGetAtelierLayoutPublicBoardAnonymous(t *testing.T) {
	fake := &fakeRest{boardRow: defaultBoardRow(true), cardRows: defaultCardRows()}
	app := newLayoutTestApp(t, fake, "")

	status, body := doJSON(t, app, fiber.MethodGet, "/api/v1/boards/"+testBoardID+"/atelier-layout", "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, body %v", status, body)
	}

	data := body["data"].(map[string]interface{})
	if data["viewMode"] != "minimal" {
		t.Errorf("stored junk view mode should normalize to minimal, got %v", data["viewMode"])
	}

	cards := data["cards"].([]interface{})
	if len(cards) != 2 {
		t.Fatalf("got %d cards, want 2", len(cards))
	}
	first := cards[0].(map[string]interface{})
	if first["cardId"] != testCardA || first["x"] != 120.5 || first["zIndex"] != float64(3) {
		t.Errorf("unexpected first card placement: %v", first)
	}
	second := cards[1].(map[string]interface{})
	if second["x"] != float64(0) || second["y"] != float64(0) {
		t.Errorf("missing coordinates should default to zero, got %v", second)
	}

	groups := data["groups"].([]interface{})
	if len(groups) != 1 {
		t.Errorf("got %d groups, want 1", len(groups))
	}
}

func TestGetAtelierLayoutUnknownBoard(t *testing.T) {
	fake := &fakeRest{}
	app := newLayoutTestApp(t, fake, "")

	status, _ := doJSON(t, app, fiber.MethodGet, "/api/v1/boards/"+testBoardID+"/atelier-layout", "")
	if status != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}

func TestGetAtelierLayoutPrivateBoardAnonymous(t *testing.T) {
	fake := &fakeRest{boardRow: defaultBoardRow(false), cardRows: defaultCardRows()}
	app := newLayoutTestApp(t, fake, "")

	status, _ := doJSON(t, app, fiber.MethodGet, "/api/v1/boards/"+testBoardID+"/atelier-layout", "")
	if status != fiber.StatusForbidden {
		t.Errorf("status = %d, want 403", status)
	}
}

func TestPatchAtelierLayoutNonCreator(t *testing.T) {
	fake := &fakeRest{boardRow: defaultBoardRow(true), cardRows: defaultCardRows()}
	app := newLayoutTestApp(t, fake, "99999999-9999-9999-9999-999999999999")

	status, _ := doJSON(t, app, fiber.MethodPatch,
		"/api/v1/boards/"+testBoardID+"/atelier-layout", `{"viewMode":"dense"}`)
	if status != fiber.StatusForbidden {
		t.Errorf("status = %d, want 403", status)
	}
}

func TestPatchAtelierLayoutInvalidViewMode(t *testing.T) {
	fake := &fakeRest{boardRow: defaultBoardRow(true), cardRows: defaultCardRows()}
	app := newLayoutTestApp(t, fake, testCreatorID)

	status, _ := doJSON(t, app, fiber.MethodPatch,
		"/api/v1/boards/"+testBoardID+"/atelier-layout", `{"viewMode":"cinematic"}`)
	if status != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestPatchAtelierLayoutEmptyEffectiveUpdate(t *testing.T) {
	fake := &fakeRest{boardRow: defaultBoardRow(true), cardRows: defaultCardRows()}
	app := newLayoutTestApp(t, fake, testCreatorID)

	// The only card entry lacks usable fields, so nothing remains to write.
	status, _ := doJSON(t, app, fiber.MethodPatch,
		"/api/v1/boards/"+testBoardID+"/atelier-layout", `{"cards":[{"cardId":"`+testCardA+`"}]}`)
	if status != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestPatchAtelierLayoutUnknownCardID(t *testing.T) {
	fake := &fakeRest{boardRow: defaultBoardRow(true), cardRows: defaultCardRows()}
	app := newLayoutTestApp(t, fake, testCreatorID)

	unknown := "55555555-5555-5555-5555-555555555555"
	status, body := doJSON(t, app, fiber.MethodPatch,
		"/api/v1/boards/"+testBoardID+"/atelier-layout",
		`{"cards":[{"cardId":"`+unknown+`","x":1}]}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}

	missing, ok := body["missing"].([]interface{})
	if !ok || len(missing) != 1 || missing[0] != unknown {
		t.Errorf("missing list = %v", body["missing"])
	}
	if len(fake.cardPatches) != 0 {
		t.Errorf("no card writes should happen on unknown ids, got %d", len(fake.cardPatches))
	}
}

func TestPatchAtelierLayoutSuccess(t *testing.T) {
	fake := &fakeRest{boardRow: defaultBoardRow(true), cardRows: defaultCardRows()}
	app := newLayoutTestApp(t, fake, testCreatorID)

	status, body := doJSON(t, app, fiber.MethodPatch,
		"/api/v1/boards/"+testBoardID+"/atelier-layout",
		`{"viewMode":"dense","cards":[{"cardId":"`+testCardA+`","x":10,"zIndex":5.7}]}`)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, body %v", status, body)
	}

	if len(fake.boardPatches) != 1 {
		t.Fatalf("got %d board writes, want 1", len(fake.boardPatches))
	}
	if fake.boardPatches[0]["atelier_view_mode"] != "dense" {
		t.Errorf("board write = %v", fake.boardPatches[0])
	}

	if len(fake.cardPatches) != 1 {
		t.Fatalf("got %d card writes, want 1", len(fake.cardPatches))
	}
	write := fake.cardPatches[0]
	if write["atelier_x"] != float64(10) {
		t.Errorf("atelier_x = %v", write["atelier_x"])
	}
	if write["atelier_z"] != float64(5) {
		t.Errorf("zIndex should truncate toward zero, got %v", write["atelier_z"])
	}
	if _, has := write["atelier_y"]; has {
		t.Error("absent fields must not be written")
	}

	// Success returns the re-fetched snapshot, not an echo of the patch.
	data := body["data"].(map[string]interface{})
	if data["boardId"] != testBoardID {
		t.Errorf("boardId = %v", data["boardId"])
	}
	if _, ok := data["cards"].([]interface{}); !ok {
		t.Errorf("snapshot cards missing: %v", data)
	}
}
