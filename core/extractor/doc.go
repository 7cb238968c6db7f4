// Package extractor converts HTTP requests into strongly typed values.
//
// An Extractor populates a target struct from one source of the request.
// Extractors compose through Apply, which runs them in declaration order
// and stops at the first failure, so the handler only ever sees a fully
// populated target:
//
//	type createItemRequest struct {
//		Shop  string `path:"shop"`
//		Force bool   `query:"force"`
//		Name  string `json:"name"`
//		Price int64  `json:"price"`
//	}
//
//	var req createItemRequest
//	err := extractor.Apply(ctx.Request(), &req,
//		extractor.Path(router.URLParam),
//		extractor.Query(),
//		extractor.JSON(),
//	)
//
// Failures carry an HTTP status and machine-readable code, so a bad path
// parameter or an unsupported Content-Type rejects the request with a 400
// envelope before any handler logic runs.
//
// At most one extractor per request may consume the body. JSON, Form, and
// Multipart all claim the body through the guard the router installs; a
// second claim fails with an internal error rather than silently reading an
// empty stream.
//
// Multipart provides streaming field iteration with bounded memory:
// per-request and per-field size ceilings, a field-count ceiling, and
// automatic spill of large fields to temporary files.
package extractor
