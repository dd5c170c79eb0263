package analysis

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"

	"mtdbench/pkg/dataset"
)

// LeadEvent is a lead START or END of the ensemble member on Node.
type LeadEvent struct {
	Time  time.Time
	Node  string
	Phase string
}

// Sighting is a successful client poll answered by Node.
type Sighting struct {
	Time time.Time
	Node string
}

// Marker labels an instant on the recovery timeline.
type Marker struct {
	Label string
	Time  time.Time
}

// Timeline is the leader and target history of a recovery run.
type Timeline struct {
	// Nodes are sorted; a node's axis position is its index plus one.
	Nodes  []string
	Events []LeadEvent
	Client []Sighting
}

// LoadTimeline reads a recovery run directory. Events and sightings are
// sorted by time.
func LoadTimeline(dir string) (*Timeline, error) {
	files, err := EnsembleFiles(dir)
	if err != nil {
		return nil, err
	}
	nodes := sets.New[string]()
	tl := &Timeline{}
	for _, f := range files {
		records, err := dataset.ReadRecordsFile(f)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if r.Type != dataset.TypeLead {
				continue
			}
			t, err := r.Timestamp()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f, err)
			}
			tl.Events = append(tl.Events, LeadEvent{Time: t, Node: r.Node, Phase: r.Value})
			nodes.Insert(r.Node)
		}
	}

	clientPath := filepath.Join(dir, dataset.ClientFileName)
	if _, err := os.Stat(clientPath); err == nil {
		rows, err := dataset.ReadClientFile(clientPath)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			tl.Client = append(tl.Client, Sighting{Time: row.Time, Node: row.Node})
			nodes.Insert(row.Node)
		}
	}

	sort.SliceStable(tl.Events, func(i, j int) bool { return tl.Events[i].Time.Before(tl.Events[j].Time) })
	sort.SliceStable(tl.Client, func(i, j int) bool { return tl.Client[i].Time.Before(tl.Client[j].Time) })
	tl.Nodes = sets.List(nodes)
	return tl, nil
}

// NodeIndex returns the 1-based axis position of node, or 0 if unknown.
func (t *Timeline) NodeIndex(node string) int {
	i := sort.SearchStrings(t.Nodes, node)
	if i < len(t.Nodes) && t.Nodes[i] == node {
		return i + 1
	}
	return 0
}

// FirstStartAfter finds the first lead START strictly after at.
func (t *Timeline) FirstStartAfter(at time.Time) (LeadEvent, bool) {
	for _, e := range t.Events {
		if e.Phase == dataset.PhaseStart && e.Time.After(at) {
			return e, true
		}
	}
	return LeadEvent{}, false
}

// RecoveryMarkers returns the deletion marker and, when the ensemble led
// again afterwards, the marker of the first lead START after it.
func (t *Timeline) RecoveryMarkers(deletedNode string, deletedAt time.Time) []Marker {
	clock := "15:04:05"
	label := "pod deletion at " + deletedAt.Format(clock)
	if deletedNode != "" {
		label = fmt.Sprintf("pod deletion on %s at %s", deletedNode, deletedAt.Format(clock))
	}
	markers := []Marker{{Label: label, Time: deletedAt}}
	if e, ok := t.FirstStartAfter(deletedAt); ok {
		markers = append(markers, Marker{
			Label: "first lead START at " + e.Time.Format(clock) + " after ensemble recovery",
			Time:  e.Time,
		})
	}
	return markers
}
