// Package events provides types and interfaces for an event-driven architecture.
//
// Components that want background work done emit a TaskRequestEvent without
// knowing which handler turns it into a task, or which scheduler runs it.
//
// The primary components are:
// - TaskRequestEvent: a request to create a background task, with its preconditions
// - EventHandler: interface for components that can handle events
// - EventEmitter: interface for components that can emit events
package events
