// Package model describes the data model of the virtual dataset store:
// granules, chunk references, array schemas, commits and branches, as well
// as the serialized layout of metadata in the backing object store.
//
// Types in this package are pure data: they know how to serialize, compare
// and locate themselves, but contain no I/O.
package model
