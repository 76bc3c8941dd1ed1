// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Transport: HTTP metadata requests, downloads and form posts
//   - Fetcher: Authenticated access to one source's payload
//   - FetcherFactory: Selects a Fetcher by source type
//   - RecordParser: Turns a downloaded payload into records
//   - ContactStoreOpener / ContactStore: The local contact store
//   - SourceStore: Source configuration and last import outcome
//   - SchedulerStore: Scheduler state
//   - ConfigStore: Application configuration
//
// Network operations return *future.Future values so that callers can start
// many requests up front and consume them in a fixed order.
//
// # Import Rules
//
//   - Can Import: domain and future packages only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
