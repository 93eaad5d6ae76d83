package domain

import "time"

// FileDrop is a discovered landing-zone object awaiting processing.
type FileDrop struct {
	Bucket       string
	Key          string // full object key: <prefix>/<folderTS>/<file>.csv
	Dataset      string
	FolderTS     string
	Size         int64
	LastModified time.Time
}

// LoadResult summarizes a completed load for notifications and handoffs.
type LoadResult struct {
	Dataset     string
	Table       string
	Bucket      string
	ObjectKey   string
	FolderTS    string
	RowsLoaded  int64
	RowsDropped int64
	Duration    time.Duration
}
