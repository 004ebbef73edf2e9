// Package models holds the GORM row types for the fund schema. Domain
// aggregates never carry gorm tags; each model converts to and from its
// aggregate with ToDomain and a From* constructor, and repositories only
// ever hand aggregates back to callers.
//
// Balances are stored in whole rupiah as BIGINT. Vault balances carry a
// CHECK (balance >= 0) constraint in addition to the conditional update
// the vault repository issues.
package models
