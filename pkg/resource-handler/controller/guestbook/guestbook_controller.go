package guestbook

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/log"

	guestbookv1alpha1 "github.com/numtide/guestbook-operator/api/v1alpha1"
	"github.com/numtide/guestbook-operator/pkg/convergence"
	"github.com/numtide/guestbook-operator/pkg/monitoring"
	"github.com/numtide/guestbook-operator/pkg/util/metadata"
)

const (
	finalizerName = "guestbook.numtide.com/finalizer"
)

// GuestBookReconciler reconciles a GuestBook object.
type GuestBookReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder
}

// +kubebuilder:rbac:groups=guestbook.numtide.com,resources=guestbooks,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=guestbook.numtide.com,resources=guestbooks/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=guestbook.numtide.com,resources=guestbooks/finalizers,verbs=update
// +kubebuilder:rbac:groups=apps,resources=deployments,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=configmaps;services,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch

// Reconcile handles GuestBook resource reconciliation.
func (r *GuestBookReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)
	ctx, span := monitoring.StartReconcileSpan(
		ctx, "guestbook.Reconcile", req.Name, req.Namespace, "GuestBook",
	)
	defer span.End()

	// Fetch the GuestBook instance
	gb := &guestbookv1alpha1.GuestBook{}
	if err := r.Get(ctx, req.NamespacedName, gb); err != nil {
		if apierrors.IsNotFound(err) {
			logger.Info("GuestBook resource not found, ignoring")
			return ctrl.Result{}, nil
		}
		logger.Error(err, "Failed to get GuestBook")
		monitoring.RecordSpanError(span, err)
		return ctrl.Result{}, err
	}

	// Handle deletion
	if !gb.DeletionTimestamp.IsZero() {
		return r.handleDeletion(ctx, gb)
	}

	// Add finalizer if not present
	if !slices.Contains(gb.Finalizers, finalizerName) {
		gb.Finalizers = append(gb.Finalizers, finalizerName)
		if err := r.Update(ctx, gb); err != nil {
			logger.Error(err, "Failed to add finalizer")
			return ctrl.Result{}, err
		}
		return ctrl.Result{}, nil
	}

	// Take one consistent snapshot of the owned children
	observed, err := r.gatherObserved(ctx, gb)
	if err != nil {
		logger.Error(err, "Failed to list owned children")
		monitoring.RecordSpanError(span, err)
		return ctrl.Result{}, err
	}

	// Plan convergence
	plan, err := convergence.NewEngine(r.Scheme).Plan(gb, observed)
	if err != nil {
		if errors.Is(err, convergence.ErrInvalidSpec) {
			// Terminal for this generation, do not requeue.
			logger.Error(err, "GuestBook spec failed validation")
			r.Recorder.Eventf(gb, "Warning", "InvalidSpec", "%v", err)
			return ctrl.Result{}, r.markInvalid(ctx, gb, err)
		}
		monitoring.RecordSpanError(span, err)
		return ctrl.Result{}, err
	}

	// Apply the plan
	applyCtx, applySpan := monitoring.StartApplySpan(ctx, len(plan.Actions))
	results := NewExecutor(r.Client).Apply(applyCtx, plan)
	applySpan.End()

	var applyErrs []error
	for _, res := range results {
		monitoring.RecordAction(string(res.Action.Kind), string(res.Action.Op), res.Err)

		if res.Conflict {
			// The snapshot went stale mid-pass; start over.
			logger.Info("Child resource version is stale, rescheduling",
				"kind", res.Action.Kind)
			return ctrl.Result{RequeueAfter: 1 * time.Second}, nil
		}
		if res.Err != nil {
			logger.Error(res.Err, "Failed to apply action",
				"kind", res.Action.Kind, "op", res.Action.Op)
			r.Recorder.Eventf(gb, "Warning", "FailedApply",
				"Failed to apply %s: %v", res.Action.Kind, res.Err)
			applyErrs = append(applyErrs, res.Err)
			continue
		}
		if res.Action.Op == convergence.OpCreate || res.Action.Op == convergence.OpUpdate {
			r.Recorder.Eventf(gb, "Normal", "Applied",
				"Applied %s %s", res.Action.Kind, res.Action.Object.GetName())
		}
	}

	// Update status even when some actions failed, so partial progress and
	// the failure reason are both visible.
	if err := r.updateStatus(ctx, gb, results); err != nil {
		logger.Error(err, "Failed to update status")
		monitoring.RecordSpanError(span, err)
		return ctrl.Result{}, err
	}

	err = errors.Join(applyErrs...)
	monitoring.RecordSpanError(span, err)
	return ctrl.Result{}, err
}

// handleDeletion removes every remaining child before releasing the
// finalizer. Cleanup goes through the engine's deletion plan so it does not
// depend on the API server's cascading garbage collection.
func (r *GuestBookReconciler) handleDeletion(
	ctx context.Context,
	gb *guestbookv1alpha1.GuestBook,
) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	if !slices.Contains(gb.Finalizers, finalizerName) {
		return ctrl.Result{}, nil
	}

	observed, err := r.gatherObserved(ctx, gb)
	if err != nil {
		logger.Error(err, "Failed to list owned children for cleanup")
		return ctrl.Result{}, err
	}

	plan, err := convergence.NewEngine(r.Scheme).Plan(nil, observed)
	if err != nil {
		return ctrl.Result{}, err
	}

	for _, res := range NewExecutor(r.Client).Apply(ctx, plan) {
		monitoring.RecordAction(string(res.Action.Kind), string(res.Action.Op), res.Err)
		if res.Conflict {
			return ctrl.Result{RequeueAfter: 1 * time.Second}, nil
		}
		if res.Err != nil {
			logger.Error(res.Err, "Failed to delete child", "kind", res.Action.Kind)
			return ctrl.Result{}, res.Err
		}
	}

	gb.Finalizers = slices.DeleteFunc(gb.Finalizers, func(s string) bool {
		return s == finalizerName
	})
	if err := r.Update(ctx, gb); err != nil {
		logger.Error(err, "Failed to remove finalizer")
		return ctrl.Result{}, err
	}

	logger.Info("Cleaned up owned children")
	return ctrl.Result{}, nil
}

// gatherObserved lists the children owned by the GuestBook. Matching is by
// ownership labels plus controller reference, so children renamed or edited
// by hand still show up and can be planned as orphans.
func (r *GuestBookReconciler) gatherObserved(
	ctx context.Context,
	gb *guestbookv1alpha1.GuestBook,
) (convergence.Observed, error) {
	var observed convergence.Observed

	opts := []client.ListOption{
		client.InNamespace(gb.Namespace),
		client.MatchingLabels(metadata.OwnershipLabels(gb.Name)),
	}

	var cms corev1.ConfigMapList
	if err := r.List(ctx, &cms, opts...); err != nil {
		return observed, fmt.Errorf("failed to list ConfigMaps: %w", err)
	}
	for i := range cms.Items {
		if metav1.IsControlledBy(&cms.Items[i], gb) {
			observed.ConfigMaps = append(observed.ConfigMaps, cms.Items[i])
		}
	}

	var deps appsv1.DeploymentList
	if err := r.List(ctx, &deps, opts...); err != nil {
		return observed, fmt.Errorf("failed to list Deployments: %w", err)
	}
	for i := range deps.Items {
		if metav1.IsControlledBy(&deps.Items[i], gb) {
			observed.Deployments = append(observed.Deployments, deps.Items[i])
		}
	}

	var svcs corev1.ServiceList
	if err := r.List(ctx, &svcs, opts...); err != nil {
		return observed, fmt.Errorf("failed to list Services: %w", err)
	}
	for i := range svcs.Items {
		if metav1.IsControlledBy(&svcs.Items[i], gb) {
			observed.Services = append(observed.Services, svcs.Items[i])
		}
	}

	return observed, nil
}

// updateStatus folds the pass results into the status subresource.
func (r *GuestBookReconciler) updateStatus(
	ctx context.Context,
	gb *guestbookv1alpha1.GuestBook,
	results []convergence.ActionResult,
) error {
	oldPhase := gb.Status.Phase
	gb.Status = convergence.DeriveStatus(gb, results, gb.Status)

	if oldPhase != gb.Status.Phase {
		r.Recorder.Eventf(gb, "Normal", "PhaseChange",
			"Transitioned from '%s' to '%s'", oldPhase, gb.Status.Phase)
	}

	monitoring.SetGuestBookInfo(gb.Name, gb.Namespace, string(gb.Status.Phase))
	monitoring.SetGuestBookReplicas(
		gb.Name, gb.Namespace,
		convergence.Replicas(gb), gb.Status.AvailableReplicas,
	)

	if err := r.Status().Update(ctx, gb); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

// markInvalid records a terminal validation failure on the status. The
// condition stays false until a new generation arrives.
func (r *GuestBookReconciler) markInvalid(
	ctx context.Context,
	gb *guestbookv1alpha1.GuestBook,
	cause error,
) error {
	meta.SetStatusCondition(&gb.Status.Conditions, metav1.Condition{
		Type:               convergence.ConditionReady,
		Status:             metav1.ConditionFalse,
		Reason:             "InvalidSpec",
		Message:            cause.Error(),
		ObservedGeneration: gb.Generation,
	})
	gb.Status.Phase = guestbookv1alpha1.PhaseFailed
	gb.Status.Message = cause.Error()
	gb.Status.ObservedGeneration = gb.Generation

	monitoring.SetGuestBookInfo(gb.Name, gb.Namespace, string(gb.Status.Phase))

	if err := r.Status().Update(ctx, gb); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

// SetupWithManager sets up the controller with the Manager.
func (r *GuestBookReconciler) SetupWithManager(mgr ctrl.Manager, opts ...controller.Options) error {
	controllerOpts := controller.Options{}
	if len(opts) > 0 {
		controllerOpts = opts[0]
	}

	return ctrl.NewControllerManagedBy(mgr).
		For(&guestbookv1alpha1.GuestBook{}).
		Owns(&corev1.ConfigMap{}).
		Owns(&appsv1.Deployment{}).
		Owns(&corev1.Service{}).
		WithOptions(controllerOpts).
		Complete(r)
}
