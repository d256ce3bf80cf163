// Package monitoring provides Prometheus metrics and recording helpers for
// the Guestbook Operator. It exposes domain-specific gauges and counters
// that complement the generic controller-runtime metrics already registered
// by the framework.
//
// All metrics follow the naming convention guestbook_operator_<metric>_<unit>
// and are registered against controller-runtime's default Prometheus registry
// on import.
//
// Usage in the controller:
//
//	monitoring.SetGuestBookInfo(gb.Name, gb.Namespace, string(gb.Status.Phase))
//	monitoring.SetGuestBookReplicas(gb.Name, gb.Namespace, desired, ready)
//	monitoring.RecordAction("Deployment", "Update", err)
package monitoring
