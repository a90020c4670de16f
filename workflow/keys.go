package workflow

// Property keys written by composite steps into the run's property map.
// They live in the per-run map, so concurrent runs never observe each
// other's loop or retry bookkeeping.
const (
	// KeyCurrentItem holds the item ForEach is currently processing.
	KeyCurrentItem = "foreach.current_item"

	// KeyCurrentIndex holds the zero-based position of KeyCurrentItem.
	KeyCurrentIndex = "foreach.current_index"

	// KeyRetryAttempt holds the 1-based attempt number of the innermost
	// RetryGroup.
	KeyRetryAttempt = "retry.attempt"

	// KeyLoopIteration holds the zero-based iteration of the innermost
	// While or DoWhile loop.
	KeyLoopIteration = "loop.iteration"
)
