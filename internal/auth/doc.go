// Package auth provides authentication for trellis.
//
// # Tokens
//
// An Issuer signs two kinds of HS256 JWT, each with its own secret:
//
//   - Access tokens: short lived (15 minutes by default), presented as a
//     bearer token on every gated route.
//   - Refresh tokens: long lived (7 days by default), exchanged for a new
//     access token via Service.Refresh.
//
// Both carry the same claims: sub (user ID), email, role, iat and exp.
// Verification is stateless; expiry is the only revocation.
//
// # Registration
//
// Service.Register takes exactly one selector:
//
//	projectId -> team_lead, plus a team-lead assignment on that project
//	boardId   -> user, plus a membership on that board
//	adminKey  -> admin, if the key matches the configured secret
//
// The user and its association are created together. On a store that
// implements store.Transactor both writes share one transaction; otherwise
// the user is deleted again if the association fails.
//
// # Gate
//
// Gate.Authenticate is gin middleware that resolves the bearer token to a
// user and attaches an access.Actor to the request context. RequireAdmin
// guards admin-only routes. Gate.StampLogin goes last in the chain and stamps
// the user's last login once per local calendar day.
// Failures are recorded with c.Error for the API's error renderer.
package auth
