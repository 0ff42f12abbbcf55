// Package api exposes the guest engagement analytics core over HTTP:
// activity ingestion, per-event and aggregated metrics reads, and the
// dashboard overview. Handlers translate between JSON and the domain
// services and map domain error kinds to status codes; they hold no
// business logic of their own.
package api
