package convergence

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/utils/ptr"
	ctrl "sigs.k8s.io/controller-runtime"

	guestbookv1alpha1 "github.com/numtide/guestbook-operator/api/v1alpha1"
	"github.com/numtide/guestbook-operator/pkg/util/metadata"
)

const (
	// DefaultReplicas is the default number of frontend replicas.
	DefaultReplicas int32 = 1

	// MinReplicas and MaxReplicas bound the replica count. The admission
	// path enforces the same bounds; the engine re-checks them defensively.
	MinReplicas int32 = 1
	MaxReplicas int32 = 10

	// DefaultImage is the default frontend container image.
	DefaultImage = "ghcr.io/numtide/guestbook:latest"

	// HTTPPort is the port the frontend container listens on.
	HTTPPort int32 = 8080
)

// DeploymentName returns the derived name of the GuestBook's Deployment.
// The workload carries the parent's name unchanged.
func DeploymentName(gb *guestbookv1alpha1.GuestBook) string {
	return gb.Name
}

// Replicas returns the desired replica count, defaulted when absent.
func Replicas(gb *guestbookv1alpha1.GuestBook) int32 {
	if gb.Spec.Replicas == nil {
		return DefaultReplicas
	}
	return *gb.Spec.Replicas
}

func image(gb *guestbookv1alpha1.GuestBook) string {
	if gb.Spec.Image == "" {
		return DefaultImage
	}
	return gb.Spec.Image
}

// BuildDeployment creates the Deployment running the guestbook frontend.
// Returns a deterministic Deployment based on the GuestBook spec.
func BuildDeployment(
	gb *guestbookv1alpha1.GuestBook,
	scheme *runtime.Scheme,
) (*appsv1.Deployment, error) {
	labels := metadata.BuildStandardLabels(gb.Name, metadata.ComponentFrontend)

	deployment := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      DeploymentName(gb),
			Namespace: gb.Namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(Replicas(gb)),
			Selector: &metav1.LabelSelector{
				MatchLabels: labels,
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: labels,
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:  "guestbook",
							Image: image(gb),
							Env:   buildContainerEnv(gb),
							Ports: []corev1.ContainerPort{
								{
									Name:          "http",
									ContainerPort: HTTPPort,
									Protocol:      corev1.ProtocolTCP,
								},
							},
						},
					},
				},
			},
		},
	}

	if err := ctrl.SetControllerReference(gb, deployment, scheme); err != nil {
		return nil, fmt.Errorf("failed to set controller reference: %w", err)
	}

	return deployment, nil
}

// buildContainerEnv wires the frontend to its ConfigMap. The reference is by
// derived name, which is why the ConfigMap is planned before the Deployment.
func buildContainerEnv(gb *guestbookv1alpha1.GuestBook) []corev1.EnvVar {
	return []corev1.EnvVar{
		{
			Name: "GUESTBOOK_WELCOME_MESSAGE",
			ValueFrom: &corev1.EnvVarSource{
				ConfigMapKeyRef: &corev1.ConfigMapKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{
						Name: ConfigMapName(gb),
					},
					Key: WelcomeMessageKey,
				},
			},
		},
	}
}
