package extractor

import (
	"context"
	"net/http"
	"sync/atomic"
)

type bodyTrackKey struct{}

// TrackBody arms the body-consumed-once guard on the request. The router
// calls it before dispatch; body-consuming extractors then register their
// read through ClaimBody. Calling it on an already-tracked request is a
// no-op.
func TrackBody(r *http.Request) *http.Request {
	if _, ok := r.Context().Value(bodyTrackKey{}).(*atomic.Bool); ok {
		return r
	}
	return r.WithContext(context.WithValue(r.Context(), bodyTrackKey{}, new(atomic.Bool)))
}

// bodyConsumed reports whether a body-consuming extractor already claimed
// the request body, without claiming it. Body-consuming extractors check it
// before any input validation: a reused body is a contract violation and
// must surface as an internal error, never as a client error about whatever
// content type the second extractor happened to expect.
func bodyConsumed(r *http.Request) bool {
	flag, ok := r.Context().Value(bodyTrackKey{}).(*atomic.Bool)
	return ok && flag.Load()
}

// errBodyAlreadyConsumed builds the contract-violation error shared by the
// peek and claim paths.
func errBodyAlreadyConsumed() error {
	return newError(http.StatusInternalServerError, "body_already_consumed", "", ErrBodyConsumed)
}

// ClaimBody marks the request body as consumed. The first claim succeeds;
// any later claim fails with an internal error, because two body-consuming
// extractors on one request is a contract violation that would otherwise
// silently hand the second extractor an empty stream. Requests without the
// guard (extractors used outside the router) always succeed.
func ClaimBody(r *http.Request) error {
	flag, ok := r.Context().Value(bodyTrackKey{}).(*atomic.Bool)
	if !ok {
		return nil
	}
	if !flag.CompareAndSwap(false, true) {
		return errBodyAlreadyConsumed()
	}
	return nil
}
