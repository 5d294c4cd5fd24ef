// Package domain defines the core entities shared by the background services
// (service lifecycle state) and the error taxonomy used across the application.
package domain
