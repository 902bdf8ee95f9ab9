// Package server provides HTTP routing, middleware, route guards and the callback handler for the browser
// surface of a session.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] uses [http.ServeMux]
// method patterns ("GET /api/session") internally. [Middleware] added first runs outermost.
//
// # Callback Handler
//
// [CallbackHandler] forwards the code, state and provider error of a redirect to [Session.HandleCallback] and
// always answers with a 303 to a clean path. The CLI login reads the first outcome from
// [CallbackHandler.Result] and then shuts the temporary server down.
//
// # Guards
//
// [Guard] chooses between protected, login and busy handlers from a fresh [session.Snapshot] on every
// request. [RequireSession] applies the same rule to JSON endpoints.
//
// # Routes
//
// [App.Router] serves:
//   - GET /login redirects to the authorization URL
//   - GET /callback completes the login
//   - POST /logout clears the session
//   - GET /api/session returns the snapshot as JSON
//   - GET /api/recommendations?mood=&limit= returns tracks for a mood
//   - GET / renders the login, busy or mood page
package server
