package cluster

import (
	"context"
	"fmt"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// PodObservation is a point-in-time view of an ensemble pod. It is re-fetched
// on every poll and never cached.
type PodObservation struct {
	Name     string
	UID      string
	Phase    corev1.PodPhase
	NodeName string
}

// Identity returns the key used to deduplicate pods across polls. A restarted
// pod keeps its name but gets a new UID, so it counts as a new identity.
func (p PodObservation) Identity() string {
	return p.Name + "-" + p.UID
}

// Running reports whether the pod is in the Running phase.
func (p PodObservation) Running() bool {
	return strings.EqualFold(string(p.Phase), string(corev1.PodRunning))
}

// ObservePods maps API pod objects to observations, sorted by name.
func ObservePods(list *corev1.PodList) []PodObservation {
	if list == nil {
		return nil
	}
	out := make([]PodObservation, 0, len(list.Items))
	for _, p := range list.Items {
		out = append(out, PodObservation{
			Name:     p.Name,
			UID:      string(p.UID),
			Phase:    p.Status.Phase,
			NodeName: p.Spec.NodeName,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UID < out[j].UID
	})
	return out
}

// CountRunning returns how many observations are in the Running phase.
func CountRunning(pods []PodObservation) int {
	n := 0
	for _, p := range pods {
		if p.Running() {
			n++
		}
	}
	return n
}

// ListPods lists all pods in the client's namespace.
func (c *Client) ListPods(ctx context.Context) ([]PodObservation, error) {
	pods, err := c.Clientset.CoreV1().Pods(c.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list pods in %s: %w", c.Namespace, err)
	}
	return ObservePods(pods), nil
}
