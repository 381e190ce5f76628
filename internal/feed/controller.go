package feed

import (
	"context"
	"errors"
	"log"
	"net"
	"slices"
	"strings"

	"github.com/tinytelemetry/livelist/internal/model"
)

// RequestKind distinguishes a full replace from an append.
type RequestKind int

const (
	KindInitial RequestKind = iota // first page; replaces items
	KindMore                       // next page; appends items
)

func (k RequestKind) String() string {
	if k == KindMore {
		return "more"
	}
	return "initial"
}

// Request describes one fetch issued by the controller. IDs increase
// monotonically; only the latest one may change state.
type Request struct {
	ID     uint64
	Kind   RequestKind
	Cursor string
	Limit  int
}

// Result is the outcome of running a Request against the source.
type Result struct {
	Request Request
	Page    model.Page
	Err     error
}

// Snapshot is an immutable view of the controller published to subscribers.
type Snapshot struct {
	State          ViewState
	Items          []model.LiveItem
	NextCursor     string
	InFlight       bool
	LoadMoreFailed bool // the last failure came from a load-more; Items are intact
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// Controller owns the view state, the item list and the next-page cursor.
// It is not safe for concurrent use: every method is meant to be called from
// the UI loop, with Run being the only part that may execute elsewhere.
type Controller struct {
	source   model.LiveSource
	pageSize int

	state          ViewState
	items          []model.LiveItem
	nextID         string
	inFlight       bool
	loadMoreFailed bool

	// latest is the ID of the most recently issued request.
	latest uint64

	subscribers []subscriber
	nextSubID   int
}

// NewController creates a controller fetching pageSize items per request.
func NewController(source model.LiveSource, pageSize int) *Controller {
	if pageSize <= 0 {
		pageSize = model.DefaultPageSize
	}
	return &Controller{
		source:   source,
		pageSize: pageSize,
		state:    Idle(),
	}
}

// Subscribe registers fn to receive a snapshot after every change. fn is
// called once immediately with the current snapshot. The returned function
// removes the subscription.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.nextSubID++
	id := c.nextSubID
	c.subscribers = append(c.subscribers, subscriber{id: id, fn: fn})
	fn(c.Snapshot())
	return func() {
		c.subscribers = slices.DeleteFunc(c.subscribers, func(s subscriber) bool {
			return s.id == id
		})
	}
}

// Snapshot returns the current state. The Items slice must not be modified.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		State:          c.state,
		Items:          c.items[:len(c.items):len(c.items)],
		NextCursor:     c.nextID,
		InFlight:       c.inFlight,
		LoadMoreFailed: c.loadMoreFailed,
	}
}

func (c *Controller) publish() {
	snap := c.Snapshot()
	// Subscribers may unsubscribe while being called.
	for _, s := range slices.Clone(c.subscribers) {
		s.fn(snap)
	}
}

// State returns the current view state.
func (c *Controller) State() ViewState { return c.state }

// Items returns the loaded items in order. The slice must not be modified.
func (c *Controller) Items() []model.LiveItem { return c.items[:len(c.items):len(c.items)] }

// NextCursor returns the continuation token, or "" at the end of the feed.
func (c *Controller) NextCursor() string { return c.nextID }

// BeginInitial starts a first-page fetch. Any request still in flight is
// superseded and its result will be discarded.
func (c *Controller) BeginInitial() Request {
	c.latest++
	req := Request{ID: c.latest, Kind: KindInitial, Limit: c.pageSize}
	c.inFlight = true
	c.loadMoreFailed = false
	c.state = Loading()
	c.publish()
	return req
}

// BeginMore starts a next-page fetch using the stored cursor. It returns false
// without issuing anything when there is no cursor or a fetch is in flight.
func (c *Controller) BeginMore() (Request, bool) {
	if c.nextID == "" || c.inFlight {
		return Request{}, false
	}
	c.latest++
	req := Request{ID: c.latest, Kind: KindMore, Cursor: c.nextID, Limit: c.pageSize}
	c.inFlight = true
	c.loadMoreFailed = false
	c.state = Loading()
	c.publish()
	return req, true
}

// RowVisible is called when the row at index scrolls into view. It begins a
// load-more when the row is near the end of the list. Automatic load-more is
// suspended after a load-more failure until the user retries.
func (c *Controller) RowVisible(index int) (Request, bool) {
	if c.loadMoreFailed || c.state.Phase == PhaseError {
		return Request{}, false
	}
	if !ShouldLoadMore(index, len(c.items), c.nextID != "") {
		return Request{}, false
	}
	return c.BeginMore()
}

// Run executes req against the source. It touches no controller state and
// may be called off the UI loop.
func (c *Controller) Run(ctx context.Context, req Request) Result {
	page, err := c.source.FetchLives(ctx, req.Cursor, req.Limit)
	return Result{Request: req, Page: page, Err: err}
}

// Apply folds a finished request into the state. Results from superseded
// requests are dropped and Apply reports false.
func (c *Controller) Apply(res Result) bool {
	if res.Request.ID != c.latest {
		log.Printf("feed: dropping stale %s result (request %d, latest %d)", res.Request.Kind, res.Request.ID, c.latest)
		return false
	}
	c.inFlight = false

	if res.Err != nil {
		log.Printf("feed: %s fetch failed: %v", res.Request.Kind, res.Err)
		c.state = Failed(DescribeError(res.Err))
		c.loadMoreFailed = res.Request.Kind == KindMore
		c.publish()
		return true
	}

	switch res.Request.Kind {
	case KindInitial:
		c.items = append([]model.LiveItem(nil), res.Page.Items...)
	case KindMore:
		c.items = appendUnique(c.items, res.Page.Items)
	}
	c.nextID = res.Page.NextCursor
	c.state = Loaded()
	c.publish()
	return true
}

// FetchInitialData loads the first page and replaces the item list.
func (c *Controller) FetchInitialData(ctx context.Context) {
	req := c.BeginInitial()
	c.Apply(c.Run(ctx, req))
}

// FetchMoreData appends the next page. It reports false, without calling the
// source, when there is no cursor or a fetch is already running.
func (c *Controller) FetchMoreData(ctx context.Context) bool {
	req, ok := c.BeginMore()
	if !ok {
		return false
	}
	c.Apply(c.Run(ctx, req))
	return true
}

// appendUnique appends incoming items whose IDs are not already present.
func appendUnique(items, incoming []model.LiveItem) []model.LiveItem {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[it.ID] = struct{}{}
	}
	for _, it := range incoming {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		items = append(items, it)
	}
	return items
}

// DescribeError turns a fetch failure into the message shown to the user.
func DescribeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out"
	case errors.Is(err, context.Canceled):
		return "Request canceled"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "Request timed out"
		}
		return "Network unavailable"
	}

	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "Something went wrong"
	}
	return msg
}
