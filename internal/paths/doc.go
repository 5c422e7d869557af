// Package paths validates the directories a batch run operates on, locates the
// compatibility shell on platforms that need one, and rewrites native paths into
// the syntax that shell expects.
package paths
