package handlers

import (
	"testing"
)

func TestBuildCardInsertWebLink(t *testing.T) {
	h := &ApplicationHandler{}
	req := &CreateCardRequest{
		URL:   "https://example.com/article",
		Title: "  An article  ",
	}

	data := h.buildCardInsert("board-1", req)

	if data["source_type"] != "web" {
		t.Errorf("source_type = %v, want web", data["source_type"])
	}
	if data["title"] != "An article" {
		t.Errorf("title = %v, want trimmed", data["title"])
	}
	if _, has := data["youtube_video_id"]; has {
		t.Error("web link should not carry a video id")
	}
	if _, has := data["thumbnail_url"]; has {
		t.Error("no thumbnail was supplied or derivable")
	}
}

func TestBuildCardInsertYouTubeLink(t *testing.T) {
	h := &ApplicationHandler{}
	req := &CreateCardRequest{
		URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=1m30s",
	}

	data := h.buildCardInsert("board-1", req)

	if data["source_type"] != "youtube" {
		t.Errorf("source_type = %v, want youtube", data["source_type"])
	}
	if data["youtube_video_id"] != "dQw4w9WgXcQ" {
		t.Errorf("youtube_video_id = %v", data["youtube_video_id"])
	}
	if data["youtube_timestamp"] != 90 {
		t.Errorf("youtube_timestamp = %v, want 90", data["youtube_timestamp"])
	}
	if data["thumbnail_url"] != "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg" {
		t.Errorf("thumbnail_url = %v", data["thumbnail_url"])
	}
}

func TestBuildCardInsertKeepsSuppliedThumbnail(t *testing.T) {
	h := &ApplicationHandler{}
	req := &CreateCardRequest{
		URL:          "https://youtu.be/dQw4w9WgXcQ",
		ThumbnailURL: "https://example.com/custom.jpg",
	}

	data := h.buildCardInsert("board-1", req)

	if data["thumbnail_url"] != "https://example.com/custom.jpg" {
		t.Errorf("supplied thumbnail should win, got %v", data["thumbnail_url"])
	}
}

func TestAssignNullableString(t *testing.T) {
	data := map[string]interface{}{}

	if err := assignNullableString(data, "title", "hello"); err != nil {
		t.Fatalf("string rejected: %v", err)
	}
	if data["title"] != "hello" {
		t.Errorf("title = %v", data["title"])
	}

	if err := assignNullableString(data, "creator_note", nil); err != nil {
		t.Fatalf("null rejected: %v", err)
	}
	if v, has := data["creator_note"]; !has || v != nil {
		t.Errorf("creator_note should be explicit null, got %v", v)
	}

	if err := assignNullableString(data, "title", 42); err == nil {
		t.Error("numbers should be rejected")
	}
}
