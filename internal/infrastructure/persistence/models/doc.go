// Package models contains the GORM persistence models that map the invoicing
// domain onto database tables. They are kept apart from the domain entities
// so the domain layer stays free of ORM tags.
//
// base.go holds TenantAggregateModel, the embedding base shared by every
// tenant-scoped aggregate. invoicing.go holds the invoicing tables (Invoice,
// InvoiceLine, SequenceCounter, LedgerState) and their domain mappers.
package models
