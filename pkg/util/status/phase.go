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

// Package status provides utilities for calculating the Phase of the
// GuestBook Custom Resource from observed replica counts.
package status

import (
	guestbookv1alpha1 "github.com/numtide/guestbook-operator/api/v1alpha1"
)

// ComputePhase determines the phase of a GuestBook based on the readiness of
// its frontend workload. total is the replica count the workload reports,
// not the count the spec requests.
func ComputePhase(ready, total int32) guestbookv1alpha1.Phase {
	if total == 0 {
		return guestbookv1alpha1.PhasePending
	}
	if ready == total {
		return guestbookv1alpha1.PhaseHealthy
	}
	return guestbookv1alpha1.PhaseProgressing
}
