package convergence

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"

	guestbookv1alpha1 "github.com/numtide/guestbook-operator/api/v1alpha1"
	"github.com/numtide/guestbook-operator/pkg/util/metadata"
)

const (
	// DefaultWelcomeMessage is used when the spec does not set one.
	DefaultWelcomeMessage = "Welcome to our Guestbook!"

	// WelcomeMessageKey is the ConfigMap data key holding the welcome message.
	WelcomeMessageKey = "welcome-message"
)

// ConfigMapName returns the derived name of the GuestBook's ConfigMap.
func ConfigMapName(gb *guestbookv1alpha1.GuestBook) string {
	return gb.Name + "-config"
}

// WelcomeMessage returns the configured welcome message, defaulted when absent.
func WelcomeMessage(gb *guestbookv1alpha1.GuestBook) string {
	if gb.Spec.WelcomeMessage == "" {
		return DefaultWelcomeMessage
	}
	return gb.Spec.WelcomeMessage
}

// BuildConfigMap creates the ConfigMap carrying the guestbook page
// configuration. Returns a deterministic ConfigMap based on the GuestBook
// spec.
func BuildConfigMap(
	gb *guestbookv1alpha1.GuestBook,
	scheme *runtime.Scheme,
) (*corev1.ConfigMap, error) {
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ConfigMapName(gb),
			Namespace: gb.Namespace,
			Labels:    metadata.BuildStandardLabels(gb.Name, metadata.ComponentConfig),
		},
		Data: map[string]string{
			WelcomeMessageKey: WelcomeMessage(gb),
		},
	}

	if err := ctrl.SetControllerReference(gb, cm, scheme); err != nil {
		return nil, fmt.Errorf("failed to set controller reference: %w", err)
	}

	return cm, nil
}
