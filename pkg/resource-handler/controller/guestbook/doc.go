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

// Package guestbook implements the controller for the GuestBook resource.
//
// The controller is a thin shell around the pure decision core in
// pkg/convergence. One reconciliation pass:
//
//   - Fetch the GuestBook and list its owned children (ConfigMap,
//     Deployment, Service) by ownership labels, producing one consistent
//     snapshot.
//
//   - Ask the convergence engine for a plan, then apply the planned actions
//     through the Executor. A stale-version conflict abandons the pass and
//     requeues; other action failures are collected and retried by the
//     runtime after status is persisted.
//
//   - Fold the action results into a new status (availability, endpoint URL,
//     Ready condition, phase) and write it through the status subresource so
//     status writes never re-trigger spec reconciliation.
//
// Deletion is handled with a finalizer: the engine's nil-desired plan
// produces explicit Delete actions for every remaining child, so cleanup
// does not depend on the API server's cascading garbage collection.
package guestbook
