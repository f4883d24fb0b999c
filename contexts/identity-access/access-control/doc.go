// Package accesscontrol implements the access-control module inside Gatekeeper.
//
// Layering:
// - domain: rule table entities, the decision procedure, integrity audit
// - application: commands/queries/workers using explicit ports
// - ports: stable boundaries for policy storage, cache, and events
// - adapters: concrete HTTP, memory, postgres, and event publisher implementations
// - transport: module-private DTOs for HTTP contracts
//
// Boundary notes:
// - Keep this module self-contained under identity-access context.
// - Do not import other context adapters into domain/application.
// - The exception bypass belongs to the transport layer: the decision
//   procedure itself never consults the exception set.
package accesscontrol
