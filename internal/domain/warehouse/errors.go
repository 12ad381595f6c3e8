package warehouse

import "github.com/cockroachdb/errors"

// ErrTransientStorage marks warehouse failures that are safe to retry:
// connection drops, pool exhaustion, serialization conflicts. Data errors are
// never marked.
var ErrTransientStorage = errors.New("warehouse: transient storage error")

// MarkTransient tags err as retryable for the loader.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrTransientStorage)
}

// IsTransient reports whether err was marked retryable by a store.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientStorage)
}
