// Package models defines the durable ledger entities for group cost splitting.
//
// # Entities
//
//   - Reservation: a cost-bearing event owned by the user who created it
//   - Group: the people splitting one reservation (1:1, created together)
//   - GroupMember: one person's stake and current share within a group
//   - Payment: one attempt to settle a member's share through a processor
//   - Activity: an append-only log entry describing a ledger event
//   - User: profile data supplied by the identity provider
//
// # Invariants
//
//  1. A reservation's TotalCost never changes; only its Status does.
//  2. Every group has at least one member, and a user appears at most once.
//  3. After any membership change the members' shares sum to TotalCost.
//  4. A member has at most one pending payment at a time.
//  5. Activities are never updated or deleted.
//
// Relationships use ID strings rather than pointers. Timestamps are Unix
// seconds, like the rest of the storage layer.
package models
