package analysis

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mtdbench/pkg/dataset"
)

func TestLoadTimeline(t *testing.T) {
	dir := t.TempDir()
	writeRun(t, dir)

	tl, err := LoadTimeline(dir)
	if err != nil {
		t.Fatalf("LoadTimeline failed: %v", err)
	}
	if diff := cmp.Diff([]string{"ubuntu22-b", "ubuntu22-c", "ubuntu22-d"}, tl.Nodes); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	// EXP-LOAD rows are not lead events.
	if len(tl.Events) != 7 {
		t.Errorf("Expected 7 lead events, got %d", len(tl.Events))
	}
	for i := 1; i < len(tl.Events); i++ {
		if tl.Events[i].Time.Before(tl.Events[i-1].Time) {
			t.Fatalf("Events not sorted at %d", i)
		}
	}
	if len(tl.Client) != 2 {
		t.Errorf("Expected 2 client sightings, got %d", len(tl.Client))
	}
	if tl.NodeIndex("ubuntu22-c") != 2 || tl.NodeIndex("ubuntu22-z") != 0 {
		t.Errorf("Unexpected node indices %d / %d", tl.NodeIndex("ubuntu22-c"), tl.NodeIndex("ubuntu22-z"))
	}
}

func TestLoadTimeline_WithoutClient(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mtd-zk-0-u0.csv"), memberB)

	tl, err := LoadTimeline(dir)
	if err != nil {
		t.Fatalf("LoadTimeline failed: %v", err)
	}
	if len(tl.Client) != 0 || len(tl.Events) != 3 {
		t.Errorf("Unexpected timeline %+v", tl)
	}
}

func TestRecoveryMarkers(t *testing.T) {
	dir := t.TempDir()
	writeRun(t, dir)
	tl, err := LoadTimeline(dir)
	if err != nil {
		t.Fatal(err)
	}

	deleted, _ := dataset.ParseTime("2023-07-28T11:40:05.000")
	markers := tl.RecoveryMarkers("ubuntu22-c", deleted)
	if len(markers) != 2 {
		t.Fatalf("Expected 2 markers, got %+v", markers)
	}
	if markers[0].Label != "pod deletion on ubuntu22-c at 11:40:05" {
		t.Errorf("Unexpected deletion label %q", markers[0].Label)
	}
	want, _ := dataset.ParseTime("2023-07-28T11:40:08.250")
	if !markers[1].Time.Equal(want) {
		t.Errorf("Expected first START after deletion at %v, got %v", want, markers[1].Time)
	}

	late := deleted.Add(time.Hour)
	if got := tl.RecoveryMarkers("", late); len(got) != 1 {
		t.Errorf("Expected only the deletion marker, got %+v", got)
	}
}
