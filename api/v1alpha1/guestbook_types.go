/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// NOTE: json tags are required.  Any new fields you add must have json tags for
// the fields to be serialized.

// Phase describes the coarse lifecycle state of a GuestBook.
type Phase string

const (
	// PhasePending means no workload has been observed yet.
	PhasePending Phase = "Pending"

	// PhaseProgressing means the workload exists but has not converged.
	PhaseProgressing Phase = "Progressing"

	// PhaseHealthy means all desired replicas are ready.
	PhaseHealthy Phase = "Healthy"

	// PhaseFailed means the spec is invalid and cannot be acted on.
	PhaseFailed Phase = "Failed"
)

// GuestBookSpec defines the desired state of GuestBook.
type GuestBookSpec struct {
	// Replicas is the desired number of guestbook frontend pods.
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=10
	// +kubebuilder:default=1
	// +optional
	Replicas *int32 `json:"replicas,omitempty"`

	// WelcomeMessage is displayed on the guestbook page.
	// +kubebuilder:validation:MinLength=1
	// +kubebuilder:default="Welcome to our Guestbook!"
	// +optional
	WelcomeMessage string `json:"welcomeMessage,omitempty"`

	// Image is the container image for the guestbook frontend.
	// +kubebuilder:validation:MinLength=1
	// +kubebuilder:default="ghcr.io/numtide/guestbook:latest"
	// +optional
	Image string `json:"image,omitempty"`
}

// GuestBookStatus defines the observed state of GuestBook.
type GuestBookStatus struct {
	// AvailableReplicas is the number of frontend replicas observed ready.
	AvailableReplicas int32 `json:"availableReplicas"`

	// URL is the in-cluster service endpoint for the guestbook.
	// +optional
	URL string `json:"url,omitempty"`

	// Phase is a coarse summary of the GuestBook lifecycle state.
	// +optional
	Phase Phase `json:"phase,omitempty"`

	// Message is a human-readable summary of the current state.
	// +optional
	Message string `json:"message,omitempty"`

	// ObservedGeneration reflects the generation of the most recently observed GuestBook spec.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// Conditions represent the latest available observations of the GuestBook's state.
	// +listType=map
	// +listMapKey=type
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=gb
// +kubebuilder:printcolumn:name="Replicas",type=integer,JSONPath=`.spec.replicas`
// +kubebuilder:printcolumn:name="Available",type=integer,JSONPath=`.status.availableReplicas`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// GuestBook is the Schema for the guestbooks API.
type GuestBook struct {
	metav1.TypeMeta `json:",inline"`

	// metadata is a standard object metadata
	// +optional
	metav1.ObjectMeta `json:"metadata,omitempty,omitzero"`

	// spec defines the desired state of GuestBook
	// +required
	Spec GuestBookSpec `json:"spec"`

	// status defines the observed state of GuestBook
	// +optional
	Status GuestBookStatus `json:"status,omitempty,omitzero"`
}

// +kubebuilder:object:root=true

// GuestBookList contains a list of GuestBook.
type GuestBookList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []GuestBook `json:"items"`
}

func init() {
	SchemeBuilder.Register(&GuestBook{}, &GuestBookList{})
}
