// Package server provides HTTP routing, middleware, the OAuth callback, and the JSON API behind `pulse serve`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers "METHOD /path" patterns on [http.ServeMux], so
// wildcards like {id} are available through [http.Request.PathValue] and other methods get 405.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel. It only processes one callback.
//
// `pulse auth login` mounts it on a temporary server; the API creates one per GET /api/login.
//
// # API
//
// [API] exposes the catalog, the queue and the export pipeline as JSON. Errors map to status codes:
//   - 401 : not authenticated
//   - 409 : a newer catalog load superseded this one, or an export is already running
//   - 412 : export preconditions (empty queue, no export directory)
//   - 400 : malformed input, including an order that is not a permutation of the queue
//
// [ExportHub] runs exports in the background and keeps their notices for GET /api/export.
package server
