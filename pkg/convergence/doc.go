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

// Package convergence implements the decision core of the guestbook
// controller: given one GuestBook and a snapshot of the child resources that
// currently exist for it, compute the actions needed to converge the cluster
// on the desired state, and fold the results back into a status.
//
// The package is deliberately pure. Nothing here talks to the API server:
//
//   - Engine.Plan maps (desired, observed) to an ordered action list. The
//     same inputs always produce the same plan, and a plan whose actions have
//     all been applied reduces to NoOps on the next pass.
//
//   - DeriveStatus maps (desired, action results, prior status) to a new
//     GuestBookStatus. It never fails; a failed action surfaces as a Ready
//     condition with the failure message rather than an error.
//
// Applying actions is the job of the controller package, which owns the
// client. Keeping the decision logic client-free makes every convergence
// scenario testable with plain values, no cluster or fake client required.
//
// Callers must present a consistent snapshot: Plan assumes desired and
// observed were read together, and that no two invocations for the same
// GuestBook run concurrently. The controller runtime's per-object work queue
// provides both guarantees.
package convergence
