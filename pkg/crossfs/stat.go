package crossfs

import "time"

// StatResult is the normalized status of a filesystem entry.
//
// Pointer fields are nil when the platform that produced the result cannot
// supply a value. A nil field never means zero or false.
type StatResult struct {
	IsFile      bool  `json:"isFile"`
	IsDirectory bool  `json:"isDirectory"`
	IsSymlink   bool  `json:"isSymlink"`
	Size        int64 `json:"size"`

	Mtime     *time.Time `json:"mtime"`
	Atime     *time.Time `json:"atime"`
	Birthtime *time.Time `json:"birthtime"`

	Dev     *uint64 `json:"dev"`
	Ino     *uint64 `json:"ino"`
	Mode    *uint32 `json:"mode"`
	Nlink   *uint64 `json:"nlink"`
	UID     *uint32 `json:"uid"`
	GID     *uint32 `json:"gid"`
	Rdev    *uint64 `json:"rdev"`
	Blksize *int64  `json:"blksize"`
	Blocks  *int64  `json:"blocks"`

	IsBlockDevice *bool `json:"isBlockDevice"`
	IsCharDevice  *bool `json:"isCharDevice"`
	IsFifo        *bool `json:"isFifo"`
	IsSocket      *bool `json:"isSocket"`
}

// Kind returns a short name for the entry type: "file", "directory",
// "symlink" or "other".
func (s StatResult) Kind() string {
	switch {
	case s.IsSymlink:
		return "symlink"
	case s.IsDirectory:
		return "directory"
	case s.IsFile:
		return "file"
	default:
		return "other"
	}
}

// DiskUsage is the space the entry is assumed to occupy: the larger of its
// block size and its byte size. A missing block size counts as zero.
func (s StatResult) DiskUsage() int64 {
	if s.Blksize != nil && *s.Blksize > s.Size {
		return *s.Blksize
	}
	return s.Size
}

// identity returns the (device, inode) pair of the entry when the platform
// reports both.
func (s StatResult) identity() (fileID, bool) {
	if s.Dev == nil || s.Ino == nil {
		return fileID{}, false
	}
	return fileID{dev: *s.Dev, ino: *s.Ino}, true
}

type fileID struct {
	dev uint64
	ino uint64
}

// lineage is the chain of directories above the entry currently being
// visited. It is shared between goroutines and never mutated.
type lineage struct {
	id     fileID
	parent *lineage
}

func (l *lineage) push(st StatResult) *lineage {
	id, ok := st.identity()
	if !ok {
		return l
	}
	return &lineage{id: id, parent: l}
}

func (l *lineage) contains(st StatResult) bool {
	id, ok := st.identity()
	if !ok {
		return false
	}
	for n := l; n != nil; n = n.parent {
		if n.id == id {
			return true
		}
	}
	return false
}
