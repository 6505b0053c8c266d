// Package bridge exposes table operations as named, text-returning handlers.
//
// A static capability list describes which tables are surfaced and which of
// the six operations (list, get, create, update, delete, aggregate) each one
// offers. RegisterAll walks the list at startup and binds one handler per
// table/operation pair into a Registry, isolating every registration so a
// single bad entry cannot take the rest down.
//
// Handler names follow the form <table>.<operation>, e.g. "incident.list".
package bridge
