package convergence

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// ChildKind identifies one of the child resource kinds derived from a
// GuestBook.
type ChildKind string

const (
	// KindConfigMap is the configuration child carrying the welcome message.
	KindConfigMap ChildKind = "ConfigMap"

	// KindDeployment is the frontend workload child.
	KindDeployment ChildKind = "Deployment"

	// KindService is the endpoint child exposing the frontend pods.
	KindService ChildKind = "Service"
)

// KindOrder is the order in which child kinds are planned and applied.
// The ConfigMap comes first because the Deployment mounts it by name; the
// Service last because it only selects pods. The executor retries on
// transient reference errors, so this is an ergonomic ordering, not a
// correctness requirement.
var KindOrder = []ChildKind{KindConfigMap, KindDeployment, KindService}

// Op is the kind of mutation an Action asks the executor to perform.
type Op string

const (
	// OpCreate creates a child that does not exist yet.
	OpCreate Op = "Create"

	// OpUpdate rewrites an existing child whose content has drifted.
	OpUpdate Op = "Update"

	// OpDelete removes a child that no longer has a desired counterpart.
	OpDelete Op = "Delete"

	// OpNoOp records that a child is already in sync. NoOps are never sent
	// to the API server; they exist for observability and for detecting the
	// convergence fixed point.
	OpNoOp Op = "NoOp"
)

// Action is one planned mutation of a child resource.
type Action struct {
	// Op selects the mutation.
	Op Op

	// Kind is the child kind the action applies to.
	Kind ChildKind

	// Object is the desired document for Create and Update, and the in-sync
	// document for NoOp. Nil for Delete.
	Object client.Object

	// Existing is the observed child the action replaces or removes. It
	// carries the store identity and resource version, so updates and
	// deletes can be conditioned on the version the plan was computed
	// against. Nil for Create.
	Existing client.Object
}

// Outcome summarizes what a plan will do once applied.
type Outcome string

const (
	// OutcomeApplied means the plan converges the children on a present
	// desired state.
	OutcomeApplied Outcome = "Applied"

	// OutcomeDeleted means the desired state is gone and the plan removes
	// every remaining child.
	OutcomeDeleted Outcome = "Deleted"
)

// Plan is the ordered action list computed for one reconciliation pass.
type Plan struct {
	Actions []Action
	Outcome Outcome
}

// Converged reports whether the plan contains no mutations, i.e. the
// observed children already match the desired state.
func (p *Plan) Converged() bool {
	for _, a := range p.Actions {
		if a.Op != OpNoOp {
			return false
		}
	}
	return true
}

// Observed is the snapshot of child resources currently present for one
// GuestBook, grouped by kind. An empty slice is a valid observation; absence
// of an expected child is not an error. Entries are matched against desired
// children by derived name, never by UID, so a child recreated by hand is
// still recognized.
type Observed struct {
	ConfigMaps  []corev1.ConfigMap
	Deployments []appsv1.Deployment
	Services    []corev1.Service
}

// ActionResult reports the executor's outcome for one action.
type ActionResult struct {
	// Action is the planned action that was attempted.
	Action Action

	// Err is the apply failure, nil on success. NoOps never fail.
	Err error

	// Conflict is set when Err is a stale-version rejection. The pass is
	// abandoned and rescheduled rather than retried in place.
	Conflict bool

	// Observed is the post-apply read-back of the child, nil when the
	// action failed or removed it. Status derivation reads availability
	// from here, never from the desired document.
	Observed client.Object
}
