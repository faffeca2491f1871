// Package progress keeps exact lifecycle counters for one boot of the
// process core. A Tracker is a kernel observer: the kernel calls it for
// every fork, exit, reap, kill, clone and join, so unlike the event stream
// it never drops an update.
package progress
