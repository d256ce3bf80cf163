package convergence

import (
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	guestbookv1alpha1 "github.com/numtide/guestbook-operator/api/v1alpha1"
)

// ErrInvalidSpec marks a GuestBook whose fields violate an invariant the
// admission path should already have enforced. It is terminal for the pass:
// retrying cannot help until the spec changes.
var ErrInvalidSpec = errors.New("invalid GuestBook spec")

// Engine plans convergence actions for GuestBook resources. It holds only
// the runtime scheme needed to stamp owner references onto desired children;
// planning itself is stateless.
type Engine struct {
	scheme *runtime.Scheme
}

// NewEngine returns an Engine using the given scheme for owner references.
func NewEngine(scheme *runtime.Scheme) *Engine {
	return &Engine{scheme: scheme}
}

// Plan computes the ordered action list converging the observed children on
// the desired state.
//
// A nil gb means the parent is gone: every observed child is planned for
// deletion and the outcome is OutcomeDeleted. This is the normal cleanup
// path, not an error.
//
// Otherwise each child kind is planned in KindOrder. A missing child yields
// a Create, a drifted child an Update carrying the observed identity, an
// in-sync child a NoOp. Observed children whose name does not match the
// derived name are orphans and planned for deletion.
//
// Plan is deterministic and idempotent, reads nothing from gb.Status, and
// returns an error only when the spec fails defensive validation (wrapped
// ErrInvalidSpec).
func (e *Engine) Plan(gb *guestbookv1alpha1.GuestBook, observed Observed) (*Plan, error) {
	if gb == nil {
		return deletionPlan(observed), nil
	}

	if r := gb.Spec.Replicas; r != nil && (*r < MinReplicas || *r > MaxReplicas) {
		return nil, fmt.Errorf(
			"%w: replicas %d outside [%d, %d]",
			ErrInvalidSpec, *r, MinReplicas, MaxReplicas,
		)
	}

	cm, err := BuildConfigMap(gb, e.scheme)
	if err != nil {
		return nil, fmt.Errorf("failed to build ConfigMap: %w", err)
	}
	deploy, err := BuildDeployment(gb, e.scheme)
	if err != nil {
		return nil, fmt.Errorf("failed to build Deployment: %w", err)
	}
	svc, err := BuildService(gb, e.scheme)
	if err != nil {
		return nil, fmt.Errorf("failed to build Service: %w", err)
	}

	plan := &Plan{Outcome: OutcomeApplied}
	plan.Actions = append(plan.Actions, planKind(KindConfigMap, cm, observed.ConfigMaps, configMapInSync)...)
	plan.Actions = append(plan.Actions, planKind(KindDeployment, deploy, observed.Deployments, deploymentInSync)...)
	plan.Actions = append(plan.Actions, planKind(KindService, svc, observed.Services, serviceInSync)...)
	return plan, nil
}

// childObject constrains a pointer-to-child-struct to the client.Object
// surface the planner needs.
type childObject[T any] interface {
	*T
	client.Object
}

// planKind matches one desired child against the observed children of its
// kind by name and emits the converging actions. Copies of the observed
// objects are carried on the actions so the plan never aliases the caller's
// snapshot.
func planKind[T any, PT childObject[T]](
	kind ChildKind,
	desired PT,
	observed []T,
	inSync func(desired, existing PT) bool,
) []Action {
	actions := make([]Action, 0, len(observed)+1)
	matched := false

	for i := range observed {
		existing := PT(&observed[i])
		snapshot := existing.DeepCopyObject().(client.Object)

		if existing.GetName() != desired.GetName() {
			// Orphan from a rename or a manual edit.
			actions = append(actions, Action{Op: OpDelete, Kind: kind, Existing: snapshot})
			continue
		}

		matched = true
		op := OpUpdate
		if inSync(desired, existing) {
			op = OpNoOp
		}
		actions = append(actions, Action{Op: op, Kind: kind, Object: desired, Existing: snapshot})
	}

	if !matched {
		actions = append(actions, Action{Op: OpCreate, Kind: kind, Object: desired})
	}
	return actions
}

func deletionPlan(observed Observed) *Plan {
	plan := &Plan{Outcome: OutcomeDeleted}
	for i := range observed.ConfigMaps {
		plan.Actions = append(plan.Actions, Action{
			Op: OpDelete, Kind: KindConfigMap, Existing: observed.ConfigMaps[i].DeepCopy(),
		})
	}
	for i := range observed.Deployments {
		plan.Actions = append(plan.Actions, Action{
			Op: OpDelete, Kind: KindDeployment, Existing: observed.Deployments[i].DeepCopy(),
		})
	}
	for i := range observed.Services {
		plan.Actions = append(plan.Actions, Action{
			Op: OpDelete, Kind: KindService, Existing: observed.Services[i].DeepCopy(),
		})
	}
	return plan
}
