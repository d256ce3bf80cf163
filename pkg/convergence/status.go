package convergence

import (
	"fmt"
	"slices"

	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	guestbookv1alpha1 "github.com/numtide/guestbook-operator/api/v1alpha1"
	statusutil "github.com/numtide/guestbook-operator/pkg/util/status"
)

// ConditionReady is the single condition type the reducer maintains.
const ConditionReady = "Ready"

// Reasons for the Ready condition.
const (
	ReasonAllReplicasReady = "AllReplicasReady"
	ReasonNotScheduled     = "WorkloadNotScheduled"
	ReasonReplicasNotReady = "ReplicasNotReady"
	ReasonApplyFailed      = "ApplyFailed"
)

// DeriveStatus folds one pass's action results into a new GuestBookStatus.
//
// Availability always comes from the workload read-back in the results, never
// from the requested replica count. The Ready condition is true exactly when
// the observed ready count has reached the desired count; when false, the
// reason distinguishes a workload that has not been scheduled from one that
// is scheduled but still converging, and a failed action surfaces its error
// in the condition message.
//
// The prior status contributes only its condition list, so an existing Ready
// condition is replaced in place (keyed by type, position preserved) instead
// of appended. DeriveStatus is pure and has no failure mode: partial executor
// failures still produce a status describing whatever did converge.
func DeriveStatus(
	gb *guestbookv1alpha1.GuestBook,
	results []ActionResult,
	prior guestbookv1alpha1.GuestBookStatus,
) guestbookv1alpha1.GuestBookStatus {
	st := guestbookv1alpha1.GuestBookStatus{
		URL:                ServiceURL(gb),
		ObservedGeneration: gb.Generation,
		Conditions:         slices.Clone(prior.Conditions),
	}

	var available, total int32
	deploy := deploymentReadBack(results)
	if deploy != nil {
		available = deploy.Status.ReadyReplicas
		total = deploy.Status.Replicas
	}
	st.AvailableReplicas = available

	desired := Replicas(gb)
	failure := lastFailure(results)

	cond := metav1.Condition{
		Type:               ConditionReady,
		ObservedGeneration: gb.Generation,
	}
	switch {
	case available >= desired:
		cond.Status = metav1.ConditionTrue
		cond.Reason = ReasonAllReplicasReady
		cond.Message = fmt.Sprintf("All %d replicas are ready", available)
	case failure != nil:
		cond.Status = metav1.ConditionFalse
		cond.Reason = ReasonApplyFailed
		cond.Message = fmt.Sprintf("Failed to apply %s: %v", failure.Action.Kind, failure.Err)
	case total == 0:
		cond.Status = metav1.ConditionFalse
		cond.Reason = ReasonNotScheduled
		cond.Message = "Frontend workload not yet scheduled"
	default:
		cond.Status = metav1.ConditionFalse
		cond.Reason = ReasonReplicasNotReady
		cond.Message = fmt.Sprintf("%d/%d replicas ready", available, desired)
	}
	meta.SetStatusCondition(&st.Conditions, cond)

	st.Phase = statusutil.ComputePhase(available, total)
	if st.Phase == guestbookv1alpha1.PhaseHealthy {
		st.Message = "Ready"
	} else {
		st.Message = cond.Message
	}

	return st
}

// deploymentReadBack returns the freshest post-apply observation of the
// frontend workload, nil when no action produced one.
func deploymentReadBack(results []ActionResult) *appsv1.Deployment {
	var deploy *appsv1.Deployment
	for _, res := range results {
		if res.Action.Kind != KindDeployment || res.Observed == nil {
			continue
		}
		if d, ok := res.Observed.(*appsv1.Deployment); ok {
			deploy = d
		}
	}
	return deploy
}

// lastFailure returns the most recent failed result, nil when the pass was
// clean.
func lastFailure(results []ActionResult) *ActionResult {
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].Err != nil {
			return &results[i]
		}
	}
	return nil
}
