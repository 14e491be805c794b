// Package core turns registration options into a database handle: options
// are merged and validated, a SQL client is opened, entity attribute names
// are translated at the storage boundary, and extensions and models are
// applied before the handle is exposed on the host.
package core
