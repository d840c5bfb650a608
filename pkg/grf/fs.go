package grf

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"time"
)

var (
	_ fs.FS         = (*Archive)(nil)
	_ fs.ReadFileFS = (*Archive)(nil)
	_ fs.ReadDirFS  = (*Archive)(nil)
	_ fs.StatFS     = (*Archive)(nil)
)

// Open implements fs.FS.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	key := normalizePath(name)

	if entry, ok := a.entries[key]; ok {
		data, err := a.read(entry)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return &file{info: fileInfo{entry: entry}, Reader: bytes.NewReader(data)}, nil
	}
	if _, ok := a.dirs[key]; ok {
		return &dir{archive: a, name: key}, nil
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Stat implements fs.StatFS without inflating the entry.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	key := normalizePath(name)
	if entry, ok := a.entries[key]; ok {
		return fileInfo{entry: entry}, nil
	}
	if _, ok := a.dirs[key]; ok {
		return fileInfo{dir: key}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// ReadDir implements fs.ReadDirFS. Entries are sorted by name.
func (a *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	key := normalizePath(name)
	children, ok := a.dirs[key]
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}

	out := make([]fs.DirEntry, 0, len(children))
	for _, child := range children {
		full := child
		if key != "." {
			full = key + "/" + child
		}
		if entry, ok := a.entries[full]; ok {
			out = append(out, fileInfo{entry: entry})
		} else {
			out = append(out, fileInfo{dir: full})
		}
	}
	return out, nil
}

// fileInfo describes either an entry or a synthesized directory.
type fileInfo struct {
	entry *Entry
	dir   string
}

func (fi fileInfo) Name() string {
	if fi.entry != nil {
		return path.Base(fi.entry.Name)
	}
	return path.Base(fi.dir)
}

func (fi fileInfo) Size() int64 {
	if fi.entry != nil {
		return int64(fi.entry.UncompressedSize)
	}
	return 0
}

func (fi fileInfo) Mode() fs.FileMode {
	if fi.entry != nil {
		return 0o444
	}
	return fs.ModeDir | 0o555
}

func (fi fileInfo) ModTime() time.Time         { return time.Time{} }
func (fi fileInfo) IsDir() bool                { return fi.entry == nil }
func (fi fileInfo) Sys() any                   { return fi.entry }
func (fi fileInfo) Type() fs.FileMode          { return fi.Mode().Type() }
func (fi fileInfo) Info() (fs.FileInfo, error) { return fi, nil }

type file struct {
	info fileInfo
	*bytes.Reader
}

func (f *file) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *file) Close() error               { return nil }

type dir struct {
	archive *Archive
	name    string
	offset  int
}

func (d *dir) Stat() (fs.FileInfo, error) { return fileInfo{dir: d.name}, nil }
func (d *dir) Close() error               { return nil }

func (d *dir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *dir) ReadDir(n int) ([]fs.DirEntry, error) {
	all, err := d.archive.ReadDir(d.name)
	if err != nil {
		return nil, err
	}
	rest := all[d.offset:]
	if n <= 0 {
		d.offset = len(all)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	if n > len(rest) {
		n = len(rest)
	}
	d.offset += n
	return rest[:n], nil
}
