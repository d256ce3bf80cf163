package monitoring

// SetGuestBookInfo sets the info-style gauge for a GuestBook.
// Old phase labels are automatically cleaned up via DeletePartialMatch.
func SetGuestBookInfo(name, namespace, phase string) {
	guestbookInfo.DeletePartialMatch(map[string]string{
		"name":      name,
		"namespace": namespace,
	})
	guestbookInfo.WithLabelValues(name, namespace, phase).Set(1)
}

// SetGuestBookReplicas sets the desired and ready frontend replica gauges
// for a GuestBook.
func SetGuestBookReplicas(name, namespace string, desired, ready int32) {
	guestbookReplicas.WithLabelValues(name, namespace, "desired").Set(float64(desired))
	guestbookReplicas.WithLabelValues(name, namespace, "ready").Set(float64(ready))
}

// RecordAction records one applied convergence action and its result.
func RecordAction(kind, op string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	actionTotal.WithLabelValues(kind, op, result).Inc()
}
