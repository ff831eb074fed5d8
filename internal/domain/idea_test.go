package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewIdea(t *testing.T) {
	t.Parallel()
	titleID := uuid.New()

	idea, err := NewIdea(titleID, "A bold red arrow pointing at the host", "Detailed prompt text")

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if idea.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if idea.TitleID != titleID {
		t.Errorf("Expected title ID %s, got %s", titleID, idea.TitleID)
	}

	if idea.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}

	// Test invalid inputs
	_, err = NewIdea(uuid.Nil, "summary", "prompt")
	if err != ErrEmptyIdeaTitleID {
		t.Errorf("Expected error %v, got %v", ErrEmptyIdeaTitleID, err)
	}

	_, err = NewIdea(titleID, "", "prompt")
	if err != ErrEmptyIdeaSummary {
		t.Errorf("Expected error %v, got %v", ErrEmptyIdeaSummary, err)
	}

	_, err = NewIdea(titleID, "summary", "")
	if err != ErrEmptyIdeaFullPrompt {
		t.Errorf("Expected error %v, got %v", ErrEmptyIdeaFullPrompt, err)
	}
}

func TestNewTitle(t *testing.T) {
	t.Parallel()

	title, err := NewTitle("How I Built a Raft in a Weekend", "use dark backgrounds")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if title.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	// Instructions are optional
	_, err = NewTitle("Another Title", "")
	if err != nil {
		t.Errorf("Expected no error for empty instructions, got %v", err)
	}

	_, err = NewTitle("", "instructions")
	if err != ErrEmptyTitleName {
		t.Errorf("Expected error %v, got %v", ErrEmptyTitleName, err)
	}
}

func TestNewReferenceImage(t *testing.T) {
	t.Parallel()

	titleID := uuid.New()
	ref, err := NewReferenceImage(titleID, false, "data:image/png;base64,aGk=")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if ref.TitleID != titleID {
		t.Errorf("Expected title ID %s, got %s", titleID, ref.TitleID)
	}

	// Global references carry no title ID
	global, err := NewReferenceImage(uuid.Nil, true, "data:image/png;base64,aGk=")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !global.Global {
		t.Error("Expected global flag to be set")
	}

	_, err = NewReferenceImage(titleID, false, "")
	if err != ErrEmptyReferenceData {
		t.Errorf("Expected error %v, got %v", ErrEmptyReferenceData, err)
	}
}
