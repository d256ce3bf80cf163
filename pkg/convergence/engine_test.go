package convergence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"

	guestbookv1alpha1 "github.com/numtide/guestbook-operator/api/v1alpha1"
)

func int32Ptr(i int32) *int32 {
	return &i
}

func boolPtr(b bool) *bool {
	return &b
}

func newTestScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	_ = guestbookv1alpha1.AddToScheme(scheme)
	_ = corev1.AddToScheme(scheme)
	_ = appsv1.AddToScheme(scheme)
	return scheme
}

func newGuestBook(name, namespace string, replicas int32, message string) *guestbookv1alpha1.GuestBook {
	return &guestbookv1alpha1.GuestBook{
		ObjectMeta: metav1.ObjectMeta{
			Name:       name,
			Namespace:  namespace,
			UID:        "test-uid",
			Generation: 1,
		},
		Spec: guestbookv1alpha1.GuestBookSpec{
			Replicas:       int32Ptr(replicas),
			WelcomeMessage: message,
		},
	}
}

// builtChildren returns the desired children for gb as an Observed snapshot,
// i.e. the state of a cluster that has fully converged.
func builtChildren(t *testing.T, gb *guestbookv1alpha1.GuestBook, scheme *runtime.Scheme) Observed {
	t.Helper()

	cm, err := BuildConfigMap(gb, scheme)
	if err != nil {
		t.Fatalf("BuildConfigMap() error = %v", err)
	}
	deploy, err := BuildDeployment(gb, scheme)
	if err != nil {
		t.Fatalf("BuildDeployment() error = %v", err)
	}
	svc, err := BuildService(gb, scheme)
	if err != nil {
		t.Fatalf("BuildService() error = %v", err)
	}

	return Observed{
		ConfigMaps:  []corev1.ConfigMap{*cm},
		Deployments: []appsv1.Deployment{*deploy},
		Services:    []corev1.Service{*svc},
	}
}

// planSteps flattens a plan into "<op> <kind> <name>" strings so tests can
// assert on action ordering without repeating full child documents.
func planSteps(p *Plan) []string {
	steps := make([]string, 0, len(p.Actions))
	for _, a := range p.Actions {
		name := ""
		switch {
		case a.Object != nil:
			name = a.Object.GetName()
		case a.Existing != nil:
			name = a.Existing.GetName()
		}
		steps = append(steps, fmt.Sprintf("%s %s %s", a.Op, a.Kind, name))
	}
	return steps
}

func TestEngine_Plan(t *testing.T) {
	t.Parallel()

	scheme := newTestScheme()
	gb := newGuestBook("g1", "ns", 2, "Hi")

	converged := builtChildren(t, gb, scheme)

	scaled := builtChildren(t, gb, scheme)
	scaled.Deployments[0].Spec.Replicas = int32Ptr(5)

	drifted := builtChildren(t, gb, scheme)
	drifted.ConfigMaps[0].Data[WelcomeMessageKey] = "stale message"

	orphaned := builtChildren(t, gb, scheme)
	orphaned.ConfigMaps[0].Name = "g1-old"

	tests := map[string]struct {
		gb          *guestbookv1alpha1.GuestBook
		observed    Observed
		wantSteps   []string
		wantOutcome Outcome
		wantErr     error
	}{
		"fresh guestbook creates all children in order": {
			gb:       gb,
			observed: Observed{},
			wantSteps: []string{
				"Create ConfigMap g1-config",
				"Create Deployment g1",
				"Create Service g1-service",
			},
			wantOutcome: OutcomeApplied,
		},
		"converged children yield only noops": {
			gb:       gb,
			observed: converged,
			wantSteps: []string{
				"NoOp ConfigMap g1-config",
				"NoOp Deployment g1",
				"NoOp Service g1-service",
			},
			wantOutcome: OutcomeApplied,
		},
		"replica drift updates only the workload": {
			gb:       gb,
			observed: scaled,
			wantSteps: []string{
				"NoOp ConfigMap g1-config",
				"Update Deployment g1",
				"NoOp Service g1-service",
			},
			wantOutcome: OutcomeApplied,
		},
		"message drift updates only the config": {
			gb:       gb,
			observed: drifted,
			wantSteps: []string{
				"Update ConfigMap g1-config",
				"NoOp Deployment g1",
				"NoOp Service g1-service",
			},
			wantOutcome: OutcomeApplied,
		},
		"orphaned child is deleted and replaced": {
			gb:       gb,
			observed: orphaned,
			wantSteps: []string{
				"Delete ConfigMap g1-old",
				"Create ConfigMap g1-config",
				"NoOp Deployment g1",
				"NoOp Service g1-service",
			},
			wantOutcome: OutcomeApplied,
		},
		"absent parent deletes every observed child": {
			gb:       nil,
			observed: converged,
			wantSteps: []string{
				"Delete ConfigMap g1-config",
				"Delete Deployment g1",
				"Delete Service g1-service",
			},
			wantOutcome: OutcomeDeleted,
		},
		"absent parent with nothing observed is an empty plan": {
			gb:          nil,
			observed:    Observed{},
			wantSteps:   []string{},
			wantOutcome: OutcomeDeleted,
		},
		"replicas below minimum": {
			gb:      newGuestBook("g1", "ns", 0, ""),
			wantErr: ErrInvalidSpec,
		},
		"replicas above maximum": {
			gb:      newGuestBook("g1", "ns", 11, ""),
			wantErr: ErrInvalidSpec,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			plan, err := NewEngine(scheme).Plan(tc.gb, tc.observed)

			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Plan() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Plan() unexpected error: %v", err)
			}

			if plan.Outcome != tc.wantOutcome {
				t.Errorf("Plan() outcome = %s, want %s", plan.Outcome, tc.wantOutcome)
			}
			got := planSteps(plan)
			if diff := cmp.Diff(tc.wantSteps, got); diff != "" {
				t.Errorf("Plan() actions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEngine_PlanIsIdempotent(t *testing.T) {
	t.Parallel()

	scheme := newTestScheme()
	gb := newGuestBook("g1", "ns", 3, "Hello")
	observed := builtChildren(t, gb, scheme)
	observed.Deployments[0].Spec.Replicas = int32Ptr(2)

	engine := NewEngine(scheme)

	first, err := engine.Plan(gb, observed)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	second, err := engine.Plan(gb, observed)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated Plan() diverged (-first +second):\n%s", diff)
	}
}

// applyPlan simulates a store executing the plan verbatim and returns the
// child set a subsequent observation would see.
func applyPlan(plan *Plan) Observed {
	var next Observed
	for _, a := range plan.Actions {
		if a.Op == OpDelete {
			continue
		}
		switch a.Kind {
		case KindConfigMap:
			next.ConfigMaps = append(next.ConfigMaps, *a.Object.(*corev1.ConfigMap))
		case KindDeployment:
			next.Deployments = append(next.Deployments, *a.Object.(*appsv1.Deployment))
		case KindService:
			next.Services = append(next.Services, *a.Object.(*corev1.Service))
		}
	}
	return next
}

func TestEngine_PlanReachesFixedPoint(t *testing.T) {
	t.Parallel()

	scheme := newTestScheme()
	gb := newGuestBook("g1", "ns", 2, "Hi")
	engine := NewEngine(scheme)

	first, err := engine.Plan(gb, Observed{})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if first.Converged() {
		t.Fatalf("first pass against an empty cluster should not be converged")
	}

	second, err := engine.Plan(gb, applyPlan(first))
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !second.Converged() {
		t.Errorf("second pass should be a fixed point, got actions: %v", planSteps(second))
	}

	third, err := engine.Plan(gb, applyPlan(second))
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !third.Converged() {
		t.Errorf("fixed point should be stable, got actions: %v", planSteps(third))
	}
}

func TestEngine_PlanIsDeterministic(t *testing.T) {
	t.Parallel()

	scheme := newTestScheme()

	// Two separately constructed but equal desired states must produce
	// byte-for-byte equal plans.
	a := newGuestBook("g1", "ns", 2, "Hi")
	b := newGuestBook("g1", "ns", 2, "Hi")

	planA, err := NewEngine(scheme).Plan(a, Observed{})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	planB, err := NewEngine(scheme).Plan(b, Observed{})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if diff := cmp.Diff(planA, planB); diff != "" {
		t.Errorf("equal inputs produced different plans (-a +b):\n%s", diff)
	}
}

func TestEngine_PlanIgnoresStatus(t *testing.T) {
	t.Parallel()

	scheme := newTestScheme()
	clean := newGuestBook("g1", "ns", 2, "Hi")

	dirty := clean.DeepCopy()
	dirty.Status = guestbookv1alpha1.GuestBookStatus{
		AvailableReplicas:  999,
		URL:                "http://not-a-real-endpoint",
		Phase:              guestbookv1alpha1.PhaseFailed,
		Message:            "stale garbage",
		ObservedGeneration: 42,
		Conditions: []metav1.Condition{
			{Type: ConditionReady, Status: metav1.ConditionFalse, Reason: "Bogus"},
		},
	}

	observed := builtChildren(t, clean, scheme)

	planClean, err := NewEngine(scheme).Plan(clean, observed)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	planDirty, err := NewEngine(scheme).Plan(dirty, observed)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if diff := cmp.Diff(planClean, planDirty); diff != "" {
		t.Errorf("status fields leaked into planning (-clean +dirty):\n%s", diff)
	}
}

func TestEngine_PlanDoesNotAliasObserved(t *testing.T) {
	t.Parallel()

	scheme := newTestScheme()
	gb := newGuestBook("g1", "ns", 2, "Hi")
	observed := builtChildren(t, gb, scheme)
	observed.Deployments[0].ResourceVersion = "41"

	plan, err := NewEngine(scheme).Plan(gb, observed)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	// Mutating the snapshot after planning must not change the plan.
	observed.Deployments[0].ResourceVersion = "99"

	for _, a := range plan.Actions {
		if a.Kind == KindDeployment && a.Existing.GetResourceVersion() != "41" {
			t.Errorf("plan aliases the observed snapshot: resourceVersion = %s, want 41",
				a.Existing.GetResourceVersion())
		}
	}
}
