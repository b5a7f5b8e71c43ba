package vpad

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderPageLinks(t *testing.T) {
	s := createTestStore(t)
	id, err := s.AddItem("Essay", "Read about Atari today", UTIMarkdown)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := s.AddItem("Atari", "the company", UTIMarkdown); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	c := openTestCache(t, s)

	got, err := s.RenderPage(c, id)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if want := "Read about [Atari](atari.md) today"; got != want {
		t.Errorf("RenderPage = %q, want %q", got, want)
	}
}

func TestRenderPageWordBoundary(t *testing.T) {
	s := createTestStore(t)
	id, err := s.AddItem("Essay", "Ataris are plural but Atari, is linked", UTIMarkdown)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := s.AddItem("Atari", "the company", UTIMarkdown); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	c := openTestCache(t, s)

	got, err := s.RenderPage(c, id)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if strings.Contains(got, "[Ataris]") {
		t.Errorf("linked inside a bigger word: %q", got)
	}
	if !strings.Contains(got, "[Atari](atari.md),") {
		t.Errorf("comma-adjacent word not linked: %q", got)
	}
}

func TestRenderPageExistingLink(t *testing.T) {
	s := createTestStore(t)
	id, err := s.AddItem("Essay", "see [Atari](atari) for more about Atari", UTIMarkdown)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := s.AddItem("Atari", "the company", UTIMarkdown); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	c := openTestCache(t, s)

	got, err := s.RenderPage(c, id)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	// The bare target gets a .md suffix and the existing link text is
	// left alone; the plain mention becomes a link.
	if want := "see [Atari](atari.md) for more about [Atari](atari.md)"; got != want {
		t.Errorf("RenderPage = %q, want %q", got, want)
	}
}

func TestRenderPageNoSelfLink(t *testing.T) {
	s := createTestStore(t)
	id, err := s.AddItem("Atari", "Atari makes computers", UTIMarkdown)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	c := openTestCache(t, s)

	got, err := s.RenderPage(c, id)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if strings.Contains(got, "](") {
		t.Errorf("page linked to itself: %q", got)
	}
}

func TestRenderDocument(t *testing.T) {
	s := createTestStore(t)
	if _, err := s.AddItem("Atari", "the company", UTIMarkdown); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	c := openTestCache(t, s)

	dir := filepath.Join(t.TempDir(), "out")
	if err := s.RenderDocument(c, dir); err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}

	for _, name := range []string{"Index.md", "Atari.md"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}
