package feed

// PrefetchDistance is how close to the end of the list a visible row must be
// before the next page is requested.
const PrefetchDistance = 5

// Branch is the screen variant picked for a given state.
type Branch int

const (
	BranchLoading  Branch = iota // full-screen loading indicator
	BranchError                  // error panel with retry
	BranchList                   // scrollable list
	BranchFallback               // placeholder text
)

func (b Branch) String() string {
	switch b {
	case BranchLoading:
		return "loading"
	case BranchError:
		return "error"
	case BranchList:
		return "list"
	default:
		return "fallback"
	}
}

// Select picks the screen variant for a state and whether the item list is
// empty. A loading state over a populated list keeps the list on screen so
// load-more can run without blanking existing rows.
func Select(state ViewState, itemsEmpty bool) Branch {
	switch {
	case state.Phase == PhaseIdle, state.Phase == PhaseLoading && itemsEmpty:
		return BranchLoading
	case state.Phase == PhaseError:
		return BranchError
	case state.Phase == PhaseLoaded, state.Phase == PhaseLoading && !itemsEmpty:
		return BranchList
	default:
		return BranchFallback
	}
}

// ShouldLoadMore reports whether a row becoming visible at index should
// request the next page.
func ShouldLoadMore(index, count int, hasCursor bool) bool {
	if !hasCursor || index < 0 || index >= count {
		return false
	}
	return index >= count-PrefetchDistance
}

// ShowFooter reports whether the trailing loading row is rendered. By default
// it follows the cursor alone; whileLoadingOnly additionally requires a fetch
// in flight.
func ShowFooter(snap Snapshot, whileLoadingOnly bool) bool {
	if snap.NextCursor == "" {
		return false
	}
	if whileLoadingOnly {
		return snap.InFlight
	}
	return true
}
