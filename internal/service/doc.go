// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and repositories
// (defined in internal/store) to fulfill application features.
//
// The services here cover thumbnail batch generation, regeneration of an
// existing thumbnail from its original concept, and the polling status
// surface clients use to watch background work complete.
//
// Key components:
//
// 1. Service Interfaces:
//   - Define application-specific operations available to the delivery mechanisms
//   - ThumbnailService is the single entry point for generation and status reads
//
// 2. Use Case Implementations:
//   - Coordinate between repositories, the concept generator, and the dispatcher
//   - Apply transactional boundaries when operations span multiple repositories
//
// 3. Dependency Management:
//   - Services receive dependencies through constructor injection
//
// 4. Error Handling:
//   - Translate store-specific errors to application-level errors
//   - Provide meaningful error context for API responses
//
// The service layer depends on domain entities and repository interfaces (from
// store), but never on specific infrastructure implementations.
package service
