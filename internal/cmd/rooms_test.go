package cmd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/godigitalafrica/gdchat/internal/session"
	"github.com/godigitalafrica/gdchat/internal/snapshot"
)

func setupCacheDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	setupTestEnvWithHandler(t, newRouteHandler())
	t.Setenv("GDCHAT_CACHE_DIR", dir)
	t.Setenv("GDCHAT_REDIS_ADDR", "")
	return dir
}

func seedConversation(t *testing.T, dir, roomID, guest string) {
	t.Helper()
	store := snapshot.NewFileStore(dir)
	err := store.Save(snapshot.Conversation{
		RoomID: roomID,
		Guest:  guest,
		Messages: []session.Message{
			{RoomID: roomID, SenderID: "v1", Role: session.RoleUser, Content: "hello", SentAt: time.Now()},
		},
	})
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
}

func TestRooms_Empty(t *testing.T) {
	setupCacheDir(t)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"rooms"}); err != nil {
			t.Errorf("rooms failed: %v", err)
		}
	})
	if !strings.Contains(output, "No cached conversations") {
		t.Errorf("output = %q, want empty message", output)
	}
}

func TestRooms_ListsCachedConversations(t *testing.T) {
	dir := setupCacheDir(t)
	seedConversation(t, dir, "room-1", "Amina")
	seedConversation(t, dir, "room-2", "Kofi")

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"rooms"}); err != nil {
			t.Errorf("rooms failed: %v", err)
		}
	})

	for _, want := range []string{"ROOM", "room-1", "Amina", "room-2", "Kofi"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestRooms_JSON(t *testing.T) {
	dir := setupCacheDir(t)
	seedConversation(t, dir, "room-1", "Amina")

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"rooms", "--json"}); err != nil {
			t.Errorf("rooms --json failed: %v", err)
		}
	})
	if !strings.Contains(output, `"rooms"`) || !strings.Contains(output, `"room-1"`) {
		t.Errorf("JSON output missing rooms: %s", output)
	}
}

func TestRooms_JSONL(t *testing.T) {
	dir := setupCacheDir(t)
	seedConversation(t, dir, "room-1", "Amina")
	seedConversation(t, dir, "room-2", "Kofi")

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"rooms", "--output", "jsonl"}); err != nil {
			t.Errorf("rooms --output jsonl failed: %v", err)
		}
	})

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 2 {
		t.Fatalf("jsonl lines = %d, want 2:\n%s", len(lines), output)
	}
}

func TestCacheDelete(t *testing.T) {
	dir := setupCacheDir(t)
	seedConversation(t, dir, "room-1", "Amina")

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"cache", "delete", "room-1"}); err != nil {
			t.Errorf("cache delete failed: %v", err)
		}
	})
	if !strings.Contains(output, "Removed room-1") {
		t.Errorf("output = %q, want removal confirmation", output)
	}

	store := snapshot.NewFileStore(dir)
	if _, ok := store.Load("room-1"); ok {
		t.Error("conversation should be gone after cache delete")
	}
}

func TestCacheClear(t *testing.T) {
	dir := setupCacheDir(t)
	seedConversation(t, dir, "room-1", "Amina")
	seedConversation(t, dir, "room-2", "Kofi")

	if err := Execute(context.Background(), []string{"cache", "clear"}); err != nil {
		t.Fatalf("cache clear failed: %v", err)
	}

	store := snapshot.NewFileStore(dir)
	convs, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 0 {
		t.Errorf("conversations after clear = %d, want 0", len(convs))
	}
}

func TestCacheSweep_ReportsRemovedCount(t *testing.T) {
	setupCacheDir(t)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"cache", "sweep"}); err != nil {
			t.Errorf("cache sweep failed: %v", err)
		}
	})
	if !strings.Contains(output, "Removed 0 expired") {
		t.Errorf("output = %q, want sweep count", output)
	}
}

func TestRooms_RedisBackend(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())
	mr := miniredis.RunT(t)
	t.Setenv("GDCHAT_REDIS_ADDR", mr.Addr())

	store, err := openConversationStore("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()
	err = store.Save(ctx, snapshot.Conversation{
		RoomID: "room-9",
		Guest:  "Zanele",
		Messages: []session.Message{
			{RoomID: "room-9", SenderID: "v1", Role: session.RoleUser, Content: "hi", SentAt: time.Now()},
		},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"rooms"}); err != nil {
			t.Errorf("rooms (redis) failed: %v", err)
		}
	})
	if !strings.Contains(output, "room-9") || !strings.Contains(output, "Zanele") {
		t.Errorf("output missing redis-backed conversation: %s", output)
	}

	if err := Execute(context.Background(), []string{"cache", "clear"}); err != nil {
		t.Fatalf("cache clear (redis) failed: %v", err)
	}
	convs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 0 {
		t.Errorf("redis conversations after clear = %d, want 0", len(convs))
	}
}
