// Package simdb records solver runs and their S-parameter results in a
// SQLite database.
//
// Open applies the embedded schema migrations, so a fresh path becomes a
// working database and an existing one is upgraded in place. Each run is a
// simulations row keyed by its store key; re-recording the same key
// updates the row and replacing its S-parameters is a single transaction.
package simdb
