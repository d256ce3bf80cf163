package metadata

import "maps"

// Standard Kubernetes label keys following kubernetes.io conventions.
//
// See: https://kubernetes.io/docs/concepts/overview/working-with-objects/common-labels/
const (
	// LabelAppName is the standard label key for the application name.
	LabelAppName = "app.kubernetes.io/name"

	// LabelAppInstance is the standard label key for the unique instance name.
	LabelAppInstance = "app.kubernetes.io/instance"

	// LabelAppComponent is the standard label key for the component within the
	// application.
	LabelAppComponent = "app.kubernetes.io/component"

	// LabelAppPartOf is the standard label key for the name of a higher level
	// application this one is part of.
	LabelAppPartOf = "app.kubernetes.io/part-of"

	// LabelAppManagedBy is the standard label key for the tool managing the
	// resource.
	LabelAppManagedBy = "app.kubernetes.io/managed-by"
)

const (
	// AppNameGuestbook is the fixed application name for all guestbook resources.
	AppNameGuestbook = "guestbook"

	// ManagedByOperator identifies the operator managing these resources.
	ManagedByOperator = "guestbook-operator"
)

const (
	// ComponentFrontend identifies the frontend workload and its service.
	ComponentFrontend = "frontend"

	// ComponentConfig identifies the configuration resources.
	ComponentConfig = "config"
)

// BuildStandardLabels returns a map of standard kubernetes labels.
// instance should be the name of the GuestBook CR that owns the resource.
// component is the name of the component (e.g. frontend, config).
func BuildStandardLabels(instance, component string) map[string]string {
	return map[string]string{
		LabelAppName:      AppNameGuestbook,
		LabelAppInstance:  instance,
		LabelAppComponent: component,
		LabelAppPartOf:    AppNameGuestbook,
		LabelAppManagedBy: ManagedByOperator,
	}
}

// OwnershipLabels returns the label subset shared by every child of the
// given GuestBook, used to query all owned resources regardless of component.
func OwnershipLabels(instance string) map[string]string {
	return map[string]string{
		LabelAppInstance:  instance,
		LabelAppManagedBy: ManagedByOperator,
	}
}

// MergeLabels merges override labels into base, returning a new map.
// Overrides win on key collisions; base is left untouched.
func MergeLabels(base, overrides map[string]string) map[string]string {
	merged := maps.Clone(base)
	if merged == nil {
		merged = map[string]string{}
	}
	maps.Copy(merged, overrides)
	return merged
}
