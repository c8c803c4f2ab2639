// Package invoicing provides domain models for fiscal invoice numbering and
// integrity in a multi-tenant garage-management SaaS.
//
// This package implements the fiscal document bounded context, which is
// responsible for:
//   - Turning a draft invoice into a legally valid, sequentially numbered,
//     tamper-evident fiscal document
//   - Enforcing the invoice lifecycle state machine (Draft, Issued, Paid, Void)
//   - Gap-free sequence allocation per (tenant, series, fiscal year) partition
//   - Hash chaining issued documents so retroactive deletion or edition of a
//     past invoice is detectable
//
// Key Aggregates:
//   - Invoice: The fiscal document root, owning its line items exclusively
//
// Value Objects:
//   - DocumentNumber: Structured (series, year, sequence) or opaque legacy number
//   - LineItem: A billed line with derived fiscal amounts
//   - ChainFields / ChainRecord: Fingerprint input and audit projections
//
// The sequence counter is process-external shared state owned by the
// SequenceAllocator contract; the Invoice never mutates a counter directly.
// Cryptographic signing against tax-authority PKI and real-time submission
// are downstream concerns outside this package.
package invoicing
