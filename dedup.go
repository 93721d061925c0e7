// dedup.go
// --------
// Request deduplication: concurrent identical logical calls share one
// in-flight execution, including its retries, and observe the identical
// outcome. singleflight provides the pending-map guarantees the core needs:
// at most one entry per key, removed exactly once when the shared execution
// settles.
package apibridge

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"
)

type deduplicator struct {
	group singleflight.Group
}

// dedupKey derives the identity under which two descriptors count as the
// same logical operation. Mutating methods include a digest of the body so
// that distinct mutations targeting the same path are never coalesced;
// bodies must be byte-identical to share an execution.
func dedupKey(d *RequestDescriptor) string {
	key := d.Method + " " + d.Path
	if d.isMutating() && len(d.Body) > 0 {
		key += "#" + strconv.FormatUint(xxhash.Sum64(d.Body), 16)
	}
	return key
}

// call runs fn under the descriptor's dedup key. Late joiners receive the
// same response value and the same error as the caller that started the
// execution.
func (dd *deduplicator) call(d *RequestDescriptor, fn func() (*Response, error)) (*Response, error) {
	v, err, _ := dd.group.Do(dedupKey(d), func() (any, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return v.(*Response), nil
}
