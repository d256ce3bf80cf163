package convergence

import (
	"errors"
	"strings"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	guestbookv1alpha1 "github.com/numtide/guestbook-operator/api/v1alpha1"
)

var errApply = errors.New("connection refused")

// deploymentResult fakes the executor's read-back of the frontend workload
// with the given reported and ready replica counts.
func deploymentResult(replicas, ready int32) ActionResult {
	return ActionResult{
		Action: Action{Op: OpNoOp, Kind: KindDeployment},
		Observed: &appsv1.Deployment{
			Status: appsv1.DeploymentStatus{
				Replicas:      replicas,
				ReadyReplicas: ready,
			},
		},
	}
}

func TestDeriveStatus(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		gb            *guestbookv1alpha1.GuestBook
		results       []ActionResult
		prior         guestbookv1alpha1.GuestBookStatus
		wantAvailable int32
		wantPhase     guestbookv1alpha1.Phase
		wantStatus    metav1.ConditionStatus
		wantReason    string
		wantMsgPart   string
	}{
		"all replicas ready": {
			gb:            newGuestBook("g1", "ns", 2, "Hi"),
			results:       []ActionResult{deploymentResult(2, 2)},
			wantAvailable: 2,
			wantPhase:     guestbookv1alpha1.PhaseHealthy,
			wantStatus:    metav1.ConditionTrue,
			wantReason:    ReasonAllReplicasReady,
			wantMsgPart:   "All 2 replicas are ready",
		},
		"workload not yet scheduled": {
			gb: newGuestBook("g1", "ns", 2, "Hi"),
			results: []ActionResult{
				{Action: Action{Op: OpCreate, Kind: KindDeployment}, Observed: &appsv1.Deployment{}},
			},
			wantAvailable: 0,
			wantPhase:     guestbookv1alpha1.PhasePending,
			wantStatus:    metav1.ConditionFalse,
			wantReason:    ReasonNotScheduled,
			wantMsgPart:   "not yet scheduled",
		},
		"scheduled but still converging": {
			gb:            newGuestBook("g1", "ns", 2, "Hi"),
			results:       []ActionResult{deploymentResult(2, 1)},
			wantAvailable: 1,
			wantPhase:     guestbookv1alpha1.PhaseProgressing,
			wantStatus:    metav1.ConditionFalse,
			wantReason:    ReasonReplicasNotReady,
			wantMsgPart:   "1/2 replicas ready",
		},
		"failed action surfaces in the condition": {
			gb: newGuestBook("g1", "ns", 2, "Hi"),
			results: []ActionResult{
				deploymentResult(2, 1),
				{
					Action: Action{Op: OpUpdate, Kind: KindService},
					Err:    errApply,
				},
			},
			wantAvailable: 1,
			wantPhase:     guestbookv1alpha1.PhaseProgressing,
			wantStatus:    metav1.ConditionFalse,
			wantReason:    ReasonApplyFailed,
			wantMsgPart:   "Failed to apply Service",
		},
		"failure does not mask achieved readiness": {
			// The workload is fully ready, only a secondary child failed.
			// Availability still reports what converged.
			gb: newGuestBook("g1", "ns", 2, "Hi"),
			results: []ActionResult{
				deploymentResult(2, 2),
				{
					Action: Action{Op: OpUpdate, Kind: KindConfigMap},
					Err:    errApply,
				},
			},
			wantAvailable: 2,
			wantPhase:     guestbookv1alpha1.PhaseHealthy,
			wantStatus:    metav1.ConditionTrue,
			wantReason:    ReasonAllReplicasReady,
			wantMsgPart:   "All 2 replicas are ready",
		},
		"no results at all": {
			gb:            newGuestBook("g1", "ns", 2, "Hi"),
			results:       nil,
			wantAvailable: 0,
			wantPhase:     guestbookv1alpha1.PhasePending,
			wantStatus:    metav1.ConditionFalse,
			wantReason:    ReasonNotScheduled,
			wantMsgPart:   "not yet scheduled",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := DeriveStatus(tc.gb, tc.results, tc.prior)

			if got.AvailableReplicas != tc.wantAvailable {
				t.Errorf("AvailableReplicas = %d, want %d", got.AvailableReplicas, tc.wantAvailable)
			}
			if got.Phase != tc.wantPhase {
				t.Errorf("Phase = %s, want %s", got.Phase, tc.wantPhase)
			}
			if want := "http://g1-service.ns.svc.cluster.local"; got.URL != want {
				t.Errorf("URL = %q, want %q", got.URL, want)
			}
			if got.ObservedGeneration != tc.gb.Generation {
				t.Errorf("ObservedGeneration = %d, want %d", got.ObservedGeneration, tc.gb.Generation)
			}

			if len(got.Conditions) != 1 {
				t.Fatalf("len(Conditions) = %d, want 1", len(got.Conditions))
			}
			cond := got.Conditions[0]
			if cond.Type != ConditionReady {
				t.Errorf("condition type = %s, want %s", cond.Type, ConditionReady)
			}
			if cond.Status != tc.wantStatus {
				t.Errorf("condition status = %s, want %s", cond.Status, tc.wantStatus)
			}
			if cond.Reason != tc.wantReason {
				t.Errorf("condition reason = %s, want %s", cond.Reason, tc.wantReason)
			}
			if !strings.Contains(cond.Message, tc.wantMsgPart) {
				t.Errorf("condition message = %q, want it to contain %q", cond.Message, tc.wantMsgPart)
			}
			if cond.ObservedGeneration != tc.gb.Generation {
				t.Errorf("condition observedGeneration = %d, want %d",
					cond.ObservedGeneration, tc.gb.Generation)
			}
		})
	}
}

func TestDeriveStatus_ReplacesConditionInPlace(t *testing.T) {
	t.Parallel()

	gb := newGuestBook("g1", "ns", 2, "Hi")
	prior := guestbookv1alpha1.GuestBookStatus{
		Conditions: []metav1.Condition{
			{
				Type:               ConditionReady,
				Status:             metav1.ConditionFalse,
				Reason:             ReasonNotScheduled,
				Message:            "Frontend workload not yet scheduled",
				LastTransitionTime: metav1.Now(),
			},
			{
				Type:   "Synced",
				Status: metav1.ConditionTrue,
				Reason: "UpToDate",
			},
		},
	}

	got := DeriveStatus(gb, []ActionResult{deploymentResult(2, 2)}, prior)

	if len(got.Conditions) != 2 {
		t.Fatalf("len(Conditions) = %d, want 2; replacement must not append", len(got.Conditions))
	}
	if got.Conditions[0].Type != ConditionReady {
		t.Errorf("Conditions[0].Type = %s, want %s; position must be preserved",
			got.Conditions[0].Type, ConditionReady)
	}
	if got.Conditions[0].Status != metav1.ConditionTrue {
		t.Errorf("Conditions[0].Status = %s, want %s",
			got.Conditions[0].Status, metav1.ConditionTrue)
	}
	if got.Conditions[1].Type != "Synced" {
		t.Errorf("Conditions[1].Type = %s, want Synced; foreign conditions must survive",
			got.Conditions[1].Type)
	}
}

func TestDeriveStatus_DoesNotMutatePrior(t *testing.T) {
	t.Parallel()

	gb := newGuestBook("g1", "ns", 2, "Hi")
	prior := guestbookv1alpha1.GuestBookStatus{
		Conditions: []metav1.Condition{
			{
				Type:    ConditionReady,
				Status:  metav1.ConditionFalse,
				Reason:  ReasonNotScheduled,
				Message: "Frontend workload not yet scheduled",
			},
		},
	}

	_ = DeriveStatus(gb, []ActionResult{deploymentResult(2, 2)}, prior)

	if prior.Conditions[0].Status != metav1.ConditionFalse {
		t.Errorf("prior condition mutated: status = %s, want %s",
			prior.Conditions[0].Status, metav1.ConditionFalse)
	}
}

func TestDeriveStatus_IgnoresStalePriorFields(t *testing.T) {
	t.Parallel()

	gb := newGuestBook("g1", "ns", 2, "Hi")
	gb.Generation = 7
	prior := guestbookv1alpha1.GuestBookStatus{
		AvailableReplicas:  999,
		URL:                "http://stale",
		Phase:              guestbookv1alpha1.PhaseFailed,
		Message:            "stale",
		ObservedGeneration: 3,
	}

	got := DeriveStatus(gb, []ActionResult{deploymentResult(2, 2)}, prior)

	if got.AvailableReplicas != 2 {
		t.Errorf("AvailableReplicas = %d, want 2", got.AvailableReplicas)
	}
	if want := "http://g1-service.ns.svc.cluster.local"; got.URL != want {
		t.Errorf("URL = %q, want %q", got.URL, want)
	}
	if got.ObservedGeneration != 7 {
		t.Errorf("ObservedGeneration = %d, want 7", got.ObservedGeneration)
	}
	if got.Phase != guestbookv1alpha1.PhaseHealthy {
		t.Errorf("Phase = %s, want %s", got.Phase, guestbookv1alpha1.PhaseHealthy)
	}
	if got.Message != "Ready" {
		t.Errorf("Message = %q, want %q", got.Message, "Ready")
	}
}
