// Package schema defines columns, cell types, width policies and the
// tagged cell values that travel between the data source, the module and
// the grid.
package schema
