// Package auth implements email/password and OAuth sign-in for a small web
// application, together with the session and gate cookies that follow a
// successful sign-in.
//
// Sign-in flows:
//   - Credentials are checked by CredentialStrategy against a UserStore.
//     Failures are reported with user facing messages (ErrMissingCredentials,
//     ErrUserNotFound, ErrInvalidCredentials).
//   - OAuth profiles are produced by the social package and handed to
//     Auther.SignInWithOAuth.
//
// Callbacks:
//   - Every attempt passes the SignInGate. The default StoreSignInGate denies
//     OAuth attempts without an email or with a failing store lookup, and
//     optionally provisions first time OAuth users.
//   - TokenCallback and SessionCallback shape the signed token and the client
//     visible session.
//
// Cookies:
//   - The session cookie is signed with the session secret and read by
//     RouteAuthenticator.SessionProvider on every request.
//   - The gate cookie is signed with the API signing key and checked by
//     RouteAuthenticator.ProtectedRoute, which answers every rejection with
//     the same 401 body.
//
// Activity sinks receive sign-in, denial, provisioning and sign-out events.
// Sinks run best-effort so a failing sink never blocks a sign-in.
package auth
