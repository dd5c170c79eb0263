package cluster

import (
	"context"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
)

func TestDeletePod_RemovesPod(t *testing.T) {
	existing := newPod("mtd", "mtd-zk-0", "uid-0", corev1.PodRunning)
	fakeClient := fake.NewClientBuilder().WithObjects(existing).Build()
	c := NewClientFrom(nil, fakeClient, "mtd")

	ctx := context.Background()
	if err := c.DeletePod(ctx, "mtd-zk-0"); err != nil {
		t.Fatalf("DeletePod failed: %v", err)
	}

	pod := &corev1.Pod{}
	err := fakeClient.Get(ctx, types.NamespacedName{Namespace: "mtd", Name: "mtd-zk-0"}, pod)
	if !apierrors.IsNotFound(err) {
		t.Errorf("Pod should be deleted, got err=%v", err)
	}
}

func TestDeletePod_MissingPod(t *testing.T) {
	c := NewClientFrom(nil, fake.NewClientBuilder().Build(), "mtd")

	err := c.DeletePod(context.Background(), "mtd-zk-9")
	if err == nil {
		t.Fatal("Expected error deleting a missing pod")
	}
	if !apierrors.IsNotFound(err) {
		t.Errorf("Expected wrapped NotFound error, got %v", err)
	}
}

func TestWaitForDrained_EmptyNamespace(t *testing.T) {
	other := newPod("default", "lb", "uid-lb", corev1.PodRunning)
	c := NewClientFrom(nil, fake.NewClientBuilder().WithObjects(other).Build(), "mtd")

	if err := c.WaitForDrained(context.Background(), "mtd", 10*time.Millisecond, time.Second); err != nil {
		t.Fatalf("WaitForDrained should succeed on an empty namespace: %v", err)
	}
}

func TestWaitForDrained_TimesOut(t *testing.T) {
	existing := newPod("mtd", "mtd-zk-0", "uid-0", corev1.PodRunning)
	c := NewClientFrom(nil, fake.NewClientBuilder().WithObjects(existing).Build(), "mtd")

	err := c.WaitForDrained(context.Background(), "mtd", 10*time.Millisecond, 50*time.Millisecond)
	if err == nil {
		t.Fatal("Expected timeout while pods remain")
	}
}
