// Package proc contains the data model shared by the process core and its
// collaborators: record states and their legal transitions, the saved
// register images of a record and the scheduling statistics exported for
// reporting.
package proc
