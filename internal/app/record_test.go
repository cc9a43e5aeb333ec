package app

import (
	"path/filepath"
	"testing"
)

func TestRunRecord_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	record := newRecord("gcr.io/test/img:latest", "abc123")
	record.Pulled = true
	record.Built = true
	record.Published = true
	record.ExitCode = 0

	if err := record.save(dir); err != nil {
		t.Fatalf("save failed: %s", err)
	}

	loaded, err := loadRecord(dir)
	if err != nil {
		t.Fatalf("loadRecord failed: %s", err)
	}

	if loaded.RunID != record.RunID {
		t.Errorf("RunID = %s, want %s", loaded.RunID, record.RunID)
	}
	if loaded.Image != "gcr.io/test/img:latest" {
		t.Errorf("Image = %s", loaded.Image)
	}
	if loaded.CommitSHA != "abc123" {
		t.Errorf("CommitSHA = %s", loaded.CommitSHA)
	}
	if !loaded.Pulled || !loaded.Built || !loaded.Published {
		t.Errorf("Flags lost in roundtrip: %+v", loaded)
	}
	if loaded.SchemaVersion != RecordSchemaVersion {
		t.Errorf("SchemaVersion = %s, want %s", loaded.SchemaVersion, RecordSchemaVersion)
	}
	if loaded.FinishedAt.Before(loaded.StartedAt) {
		t.Error("FinishedAt should not precede StartedAt")
	}
}

func TestLoadRecord_MissingFile(t *testing.T) {
	if _, err := loadRecord(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("Expected error for missing record")
	}
}

func TestNewRecord_UniqueRunIDs(t *testing.T) {
	a := newRecord("img", "")
	b := newRecord("img", "")
	if a.RunID == b.RunID {
		t.Error("Run ids should be unique per run")
	}
}
