package guestbook

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/numtide/guestbook-operator/pkg/convergence"
)

// Executor applies planned actions against the cluster and reports a
// per-action result for status derivation. It is the only place where the
// convergence plan touches the API server.
type Executor struct {
	client client.Client
}

// NewExecutor returns an Executor writing through the given client.
func NewExecutor(c client.Client) *Executor {
	return &Executor{client: c}
}

// Apply carries out the plan's actions in order. A failed action is recorded
// and the remaining actions still run, so one broken child does not block
// status for the others. A stale-version conflict aborts the pass instead:
// the snapshot the plan was computed against no longer exists, and the
// caller reschedules a fresh pass.
func (e *Executor) Apply(ctx context.Context, plan *convergence.Plan) []convergence.ActionResult {
	results := make([]convergence.ActionResult, 0, len(plan.Actions))
	for _, action := range plan.Actions {
		res := e.apply(ctx, action)
		results = append(results, res)
		if res.Conflict {
			break
		}
	}
	return results
}

func (e *Executor) apply(ctx context.Context, action convergence.Action) convergence.ActionResult {
	res := convergence.ActionResult{Action: action}

	switch action.Op {
	case convergence.OpNoOp:
		// Nothing to send; the observed snapshot doubles as the read-back.
		res.Observed = action.Existing

	case convergence.OpCreate:
		obj := action.Object.DeepCopyObject().(client.Object)
		if err := e.client.Create(ctx, obj); err != nil {
			res.Err = fmt.Errorf("failed to create %s %q: %w", action.Kind, action.Object.GetName(), err)
			break
		}
		res.Observed = obj

	case convergence.OpUpdate:
		obj := action.Object.DeepCopyObject().(client.Object)
		// Condition the write on the version the plan was computed against.
		obj.SetResourceVersion(action.Existing.GetResourceVersion())
		if err := e.client.Update(ctx, obj); err != nil {
			res.Conflict = apierrors.IsConflict(err)
			res.Err = fmt.Errorf("failed to update %s %q: %w", action.Kind, action.Object.GetName(), err)
			break
		}
		res.Observed = obj

	case convergence.OpDelete:
		err := e.client.Delete(ctx, action.Existing)
		if err != nil && !apierrors.IsNotFound(err) {
			res.Conflict = apierrors.IsConflict(err)
			res.Err = fmt.Errorf("failed to delete %s %q: %w", action.Kind, action.Existing.GetName(), err)
		}
	}

	return res
}
