// Package identity gates the dashboard behind passwordless email login.
//
// A user asks for a magic link, the identity provider (a Supabase GoTrue
// server) emails it, and the browser comes back with an access token. The
// API then verifies that token on every gated request.
//
//	c := identity.NewClient(cfg.Identity.SupabaseURL, cfg.Identity.AnonKey, 0, log)
//	err := c.SendMagicLink(ctx, "me@example.com", "https://app.example.com")
//
//	mux.Handle("/functions/v1/", identity.RequireSession(c, writeError)(h))
package identity
