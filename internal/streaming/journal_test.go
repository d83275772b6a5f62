package streaming

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestJournalAppendAndReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	j, err := OpenJournal(dir, "stream-1")
	if err != nil {
		t.Fatalf("OpenJournal returned error: %v", err)
	}

	events := []Event{
		{Sequence: 1, Kind: EventContentDelta, Delta: "hi"},
		{Sequence: 2, Kind: EventMessageStop, StopReason: "end_turn"},
	}
	for _, ev := range events {
		if err := j.Append(ev); err != nil {
			t.Fatalf("Append returned error: %v", err)
		}
	}
	if err := j.Commit(); err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}

	read, err := ReadJournal(filepath.Join(dir, "stream-1.jsonl"))
	if err != nil {
		t.Fatalf("ReadJournal returned error: %v", err)
	}
	if len(read) != 2 {
		t.Fatalf("expected 2 events, got %d", len(read))
	}
	if read[0].Delta != "hi" || read[1].StopReason != "end_turn" {
		t.Fatalf("unexpected round-tripped events: %+v", read)
	}
}

func TestJournalAppendPreservesErrorText(t *testing.T) {
	dir := t.TempDir()
	j, err := OpenJournal(dir, "stream-err")
	if err != nil {
		t.Fatalf("OpenJournal returned error: %v", err)
	}
	if err := j.Append(Event{Sequence: 1, Kind: EventError, Err: errors.New("connection reset")}); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if err := j.Commit(); err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}

	read, err := ReadJournal(filepath.Join(dir, "stream-err.jsonl"))
	if err != nil {
		t.Fatalf("ReadJournal returned error: %v", err)
	}
	if len(read) != 1 || read[0].Err == nil || read[0].Err.Error() != "connection reset" {
		t.Fatalf("unexpected event: %+v", read)
	}
}

func TestOpenJournalRejectsAlreadyLockedFile(t *testing.T) {
	dir := t.TempDir()
	first, err := OpenJournal(dir, "stream-lock")
	if err != nil {
		t.Fatalf("OpenJournal returned error: %v", err)
	}
	defer first.Commit()

	if _, err := OpenJournal(dir, "stream-lock"); err == nil {
		t.Fatalf("expected second OpenJournal for the same stream to fail while the first holds the lock")
	}
}
