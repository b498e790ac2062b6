// Package tables resolves table names for the query parser.
//
// A Runner looks a name up, in order, among registered in-memory tables,
// query-defined tables (Query/<name>.xql, compiled recursively), CSV tables
// (Table/<name>.csv) and the tables of an attached SQLite database.
package tables
