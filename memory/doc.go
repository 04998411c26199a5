// Package memory provides core.HistoryStore implementations: the rolling
// conversation context carried between requests.
//
// FileStore projects the buffer onto a JSON array file that other processes
// (and the clear_context plugin) may rewrite. Staleness is detected from the
// file's modification time and size, optionally sharpened by an fsnotify
// watch. InMemoryStore keeps the buffer in process only.
package memory
