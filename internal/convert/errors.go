package convert

import (
	"fmt"

	"github.com/ironsheep/image-normalizer-mcp/internal/media"
)

// SynchronousConversionUnsupportedError is returned by synchronous calls
// whose source needs decoding, fetching or frame capture before it can be
// drawn.
type SynchronousConversionUnsupportedError struct {
	Kind   media.Kind
	Reason string
}

func (e *SynchronousConversionUnsupportedError) Error() string {
	return fmt.Sprintf("synchronous conversion unsupported for %s source: %s", e.Kind, e.Reason)
}
