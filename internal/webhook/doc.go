// Package webhook implements the HTTP listener for GitHub push webhooks.
//
// Every delivery runs the same validation pipeline before any hook executes:
//
//  1. Source address checked against GitHub's published hook CIDR ranges
//  2. HMAC signature header extracted ("<algo>=<hexdigest>")
//  3. HMAC computed over the raw body and compared in constant time
//  4. Event classified (ping / push / unsupported)
//  5. Push ref parsed and the branch checked against the configured set
//
// Range membership alone is not authentication: the signature check always
// runs for trusted-range addresses too. The origin check merely comes first
// so foreign traffic never costs an HMAC computation.
//
// # Error Responses
//
// - 403 Forbidden: origin, signature, event or branch rejection (no details)
// - 400 Bad Request: payload parse failure
// - 413 Payload Too Large: body exceeds the configured limit
//
// Hook execution failures never surface here; an accepted push returns 202
// regardless of what the hooks later exit with.
package webhook
