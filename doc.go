// Package auth implements the authentication and session-lifecycle subsystem
// for the FilmHub movie-discovery backend: paired access/refresh JWT issuance
// with storage-backed revocation, the email-verification flow that gates first
// login, cookie-based session transport, and the real-time activity
// broadcaster that fans user actions out to connected clients.
//
// Token lifecycle:
//   - Access tokens are short-lived (15 minutes) and validated purely by
//     signature and expiry; no storage lookup happens on the hot path.
//   - Refresh tokens are long-lived (7 days) and persisted in the
//     refresh_sessions table, one live session per user. Logout and re-login
//     revoke by replacing or deleting the stored session, so revocation works
//     even while the signature remains valid.
//
// Verification:
//   - SignupHandler creates users unverified with a one-time opaque token and
//     delivers the verification email best-effort; a login attempt on an
//     unverified account regenerates the token, re-sends the email, and fails
//     with ErrEmailNotVerified.
//   - VerifyEmailHandler consumes the token, flips the user to verified, and
//     pushes a verified event to the waiting client through the Hub.
//
// Activity:
//   - Hub keeps the registry of open real-time connections keyed by user (or
//     by email for pre-login verification waits) and delivers events with a
//     non-blocking, drop-on-full policy per connection. ActivitySink is the
//     write side used by the rest of the backend; sinks run best-effort and
//     never fail the operation that emitted the event.
package auth
