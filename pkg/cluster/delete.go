package cluster

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// DeletePod deletes a single pod in the client's namespace. Used by recovery
// experiments to kill one ensemble member.
func (c *Client) DeletePod(ctx context.Context, name string) error {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: c.Namespace,
		},
	}
	if err := c.Ctrl.Delete(ctx, pod); err != nil {
		if apierrors.IsNotFound(err) {
			return fmt.Errorf("pod %s/%s not found: %w", c.Namespace, name, err)
		}
		return fmt.Errorf("delete pod %s/%s: %w", c.Namespace, name, err)
	}
	klog.InfoS("Deleted pod", "namespace", c.Namespace, "pod", name)
	return nil
}

// WaitForDrained blocks until no pods remain in namespace. A zero timeout
// waits until ctx is done.
func (c *Client) WaitForDrained(ctx context.Context, namespace string, interval, timeout time.Duration) error {
	condition := func(ctx context.Context) (bool, error) {
		pods := &corev1.PodList{}
		if err := c.Ctrl.List(ctx, pods, client.InNamespace(namespace)); err != nil {
			klog.ErrorS(err, "List pods while waiting for drain", "namespace", namespace)
			return false, nil
		}
		if len(pods.Items) > 0 {
			klog.V(4).InfoS("Waiting for pods to be deleted", "namespace", namespace, "remaining", len(pods.Items))
			return false, nil
		}
		return true, nil
	}

	var err error
	if timeout > 0 {
		err = wait.PollUntilContextTimeout(ctx, interval, timeout, true, condition)
	} else {
		err = wait.PollUntilContextCancel(ctx, interval, true, condition)
	}
	if err != nil {
		return fmt.Errorf("wait for namespace %s to drain: %w", namespace, err)
	}
	return nil
}
