package convergence

import (
	"maps"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	"k8s.io/utils/ptr"
)

// The in-sync checks below compare only the fields the builders manage.
// Fields the API server defaults or other controllers write (status,
// creation metadata, cluster IPs, node ports) never count as drift, so an
// applied plan reads back as converged on the next pass.

func configMapInSync(desired, existing *corev1.ConfigMap) bool {
	if !maps.Equal(desired.Data, existing.Data) {
		return false
	}
	return labelsInSync(desired.Labels, existing.Labels)
}

func deploymentInSync(desired, existing *appsv1.Deployment) bool {
	if ptr.Deref(desired.Spec.Replicas, DefaultReplicas) !=
		ptr.Deref(existing.Spec.Replicas, DefaultReplicas) {
		return false
	}
	if !labelsInSync(desired.Labels, existing.Labels) {
		return false
	}
	if !labelsInSync(desired.Spec.Template.Labels, existing.Spec.Template.Labels) {
		return false
	}

	dc := desired.Spec.Template.Spec.Containers
	ec := existing.Spec.Template.Spec.Containers
	if len(dc) != len(ec) {
		return false
	}
	for i := range dc {
		if dc[i].Name != ec[i].Name || dc[i].Image != ec[i].Image {
			return false
		}
		if !equality.Semantic.DeepEqual(dc[i].Env, ec[i].Env) {
			return false
		}
		if !equality.Semantic.DeepEqual(dc[i].Ports, ec[i].Ports) {
			return false
		}
	}
	return true
}

func serviceInSync(desired, existing *corev1.Service) bool {
	if !maps.Equal(desired.Spec.Selector, existing.Spec.Selector) {
		return false
	}
	if !labelsInSync(desired.Labels, existing.Labels) {
		return false
	}
	if len(desired.Spec.Ports) != len(existing.Spec.Ports) {
		return false
	}
	for i, dp := range desired.Spec.Ports {
		// NodePort is assigned server-side, skip it.
		ep := existing.Spec.Ports[i]
		if dp.Name != ep.Name || dp.Port != ep.Port ||
			dp.TargetPort != ep.TargetPort || dp.Protocol != ep.Protocol {
			return false
		}
	}
	return true
}

// labelsInSync reports whether every desired label is present with the same
// value. Extra labels added by other actors are tolerated.
func labelsInSync(desired, existing map[string]string) bool {
	for k, v := range desired {
		if existing[k] != v {
			return false
		}
	}
	return true
}
