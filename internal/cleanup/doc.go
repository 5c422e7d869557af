// Package cleanup removes intermediate conversion artifacts, retrying while the
// operating system still holds the file open.
package cleanup
