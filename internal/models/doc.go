// Package models defines the core domain models for Tanda.
//
// # Models
//
//   - Circle: one ROSCA instance, a fixed group of members who each
//     contribute a set amount per cycle, with one member receiving the pooled
//     payout per cycle in join order.
//   - Member: one slot in a circle's rotation.
//   - Account: a registered user; the account ID doubles as the ledger
//     address used for contributions and payouts.
//
// # Design Principles
//
//  1. **Pure transitions**: Circle carries all lifecycle rules as methods
//     with no I/O, so invariants are testable without a database.
//  2. **Whole-record ownership**: a Circle owns its members and the current
//     cycle's contribution set; nothing is shared across circles.
//  3. **Named failures**: every rejected transition maps to exactly one
//     sentinel error so callers can present a precise remediation message.
package models
