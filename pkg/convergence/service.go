package convergence

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"
	ctrl "sigs.k8s.io/controller-runtime"

	guestbookv1alpha1 "github.com/numtide/guestbook-operator/api/v1alpha1"
	"github.com/numtide/guestbook-operator/pkg/util/metadata"
)

// ServicePort is the port the guestbook Service exposes.
const ServicePort int32 = 80

// ServiceName returns the derived name of the GuestBook's Service.
func ServiceName(gb *guestbookv1alpha1.GuestBook) string {
	return gb.Name + "-service"
}

// ServiceURL returns the in-cluster endpoint for the guestbook, templated
// from the parent's namespaced name. Purely derived: equal names and
// namespaces always yield equal URLs.
func ServiceURL(gb *guestbookv1alpha1.GuestBook) string {
	return fmt.Sprintf("http://%s.%s.svc.cluster.local", ServiceName(gb), gb.Namespace)
}

// BuildService creates the Service exposing the guestbook frontend pods.
// Returns a deterministic Service based on the GuestBook spec.
func BuildService(
	gb *guestbookv1alpha1.GuestBook,
	scheme *runtime.Scheme,
) (*corev1.Service, error) {
	selector := metadata.BuildStandardLabels(gb.Name, metadata.ComponentFrontend)

	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ServiceName(gb),
			Namespace: gb.Namespace,
			Labels:    metadata.BuildStandardLabels(gb.Name, metadata.ComponentFrontend),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: selector,
			Ports: []corev1.ServicePort{
				{
					Name:       "http",
					Port:       ServicePort,
					TargetPort: intstr.FromString("http"),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}

	if err := ctrl.SetControllerReference(gb, svc, scheme); err != nil {
		return nil, fmt.Errorf("failed to set controller reference: %w", err)
	}

	return svc, nil
}
