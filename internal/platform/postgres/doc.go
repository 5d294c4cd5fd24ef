// Package postgres provides the PostgreSQL implementation of task.TaskStore
// together with the embedded goose migrations for its schema. Connections use
// the pgx database/sql driver.
package postgres
