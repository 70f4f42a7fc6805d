// Package services provides a centralized service registry for interviewd.
//
// Registry pattern for accessing the core services (interview orchestrator,
// feedback generator, question bank, event publisher, scrubber, store).
// Use NewRegistry() to create a registry with service instances, then
// accessor methods to retrieve individual services.
package services
