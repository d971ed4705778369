package store

import (
	"path/filepath"
	"testing"
)

func TestSessionLogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")
	log, err := Open(path, "session-1", "gemini-2.5-pro")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer log.Close()

	if err := log.AppendMessage("user", "hello"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.AppendMessage("assistant", "hi"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.RecordUsage(100, 20, 0.0003); err != nil {
		t.Fatalf("usage: %v", err)
	}

	msgs, err := log.Messages("session-1")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "hello" {
		t.Errorf("first message wrong: %+v", msgs[0])
	}
	if msgs[1].Seq <= msgs[0].Seq {
		t.Error("sequence numbers should increase")
	}
}

func TestSessionLogSeparateSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")
	first, err := Open(path, "s1", "gemini-2.5-pro")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.AppendMessage("user", "only in s1"); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second, err := Open(path, "s2", "gemini-2.5-pro")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	msgs, err := second.Messages("s2")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("s2 should start empty, got %d messages", len(msgs))
	}
}
