// Package grf reads Ragnarok Online GRF archives (version 0x200) and exposes
// them as an io/fs file system.
package grf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/Faultbox/midgard-3mf/pkg/encoding"
)

// Magic opens every GRF header.
const Magic = "Master of Magic"

// HeaderSize is the size of the fixed header. Table and data offsets are
// relative to its end.
const HeaderSize = 46

// Version200 is the only supported layout.
const Version200 = 0x200

// Entry flags.
const (
	FlagFile     = 0x01
	FlagMixCrypt = 0x02
	FlagDES      = 0x04
)

// Archive errors.
var (
	ErrInvalidMagic       = errors.New("grf: invalid magic")
	ErrUnsupportedVersion = errors.New("grf: unsupported version")
	ErrEncrypted          = errors.New("grf: encrypted entries are not supported")
	ErrCorruptTable       = errors.New("grf: corrupt file table")
)

// Header contains GRF file header information.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Files returns the number of entries announced by the header.
func (h Header) Files() int {
	return int(h.FileCount) - int(h.Seed) - 7
}

// Entry describes one file in the archive.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Encrypted reports whether the entry uses one of the DES variants.
func (e *Entry) Encrypted() bool {
	return e.Flags&(FlagMixCrypt|FlagDES) != 0
}

// Archive is an opened GRF archive. It implements fs.FS, fs.ReadFileFS,
// fs.ReadDirFS and fs.StatFS. Names are matched case-insensitively with
// forward slashes.
type Archive struct {
	r       io.ReaderAt
	size    int64
	closer  io.Closer
	header  Header
	entries map[string]*Entry
	names   []string
	dirs    map[string][]string
}

// Open opens a GRF archive on disk.
func Open(name string) (*Archive, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	a, err := OpenReader(f, st.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// OpenReader reads the header and file table from r.
func OpenReader(r io.ReaderAt, size int64) (*Archive, error) {
	a := &Archive{
		r:       r,
		size:    size,
		entries: make(map[string]*Entry),
		dirs:    make(map[string][]string),
	}
	if err := a.readHeader(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := a.readFileTable(); err != nil {
		return nil, fmt.Errorf("reading file table: %w", err)
	}
	a.index()
	return a, nil
}

// Close closes the underlying file when the archive was opened by name.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// Header returns the archive header.
func (a *Archive) Header() Header {
	return a.header
}

func (a *Archive) readHeader() error {
	sr := io.NewSectionReader(a.r, 0, HeaderSize)
	if err := binary.Read(sr, binary.LittleEndian, &a.header); err != nil {
		return err
	}
	if string(a.header.Magic[:]) != Magic {
		return ErrInvalidMagic
	}
	if a.header.Version != Version200 {
		return fmt.Errorf("%w: 0x%x", ErrUnsupportedVersion, a.header.Version)
	}
	return nil
}

func (a *Archive) readFileTable() error {
	tableOffset := int64(a.header.TableOffset) + HeaderSize
	if tableOffset+8 > a.size {
		return fmt.Errorf("%w: table offset %d past end", ErrCorruptTable, tableOffset)
	}

	var sizes [8]byte
	if _, err := a.r.ReadAt(sizes[:], tableOffset); err != nil {
		return err
	}
	compressedSize := binary.LittleEndian.Uint32(sizes[0:])
	uncompressedSize := binary.LittleEndian.Uint32(sizes[4:])
	if tableOffset+8+int64(compressedSize) > a.size {
		return fmt.Errorf("%w: table truncated", ErrCorruptTable)
	}

	zr, err := zlib.NewReader(io.NewSectionReader(a.r, tableOffset+8, int64(compressedSize)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}
	defer zr.Close()

	table := make([]byte, uncompressedSize)
	if _, err := io.ReadFull(zr, table); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}

	offset := 0
	for i := 0; i < a.header.Files(); i++ {
		nameEnd := bytes.IndexByte(table[offset:], 0)
		if nameEnd < 0 {
			break
		}
		name := encoding.EUCKRToUTF8(table[offset : offset+nameEnd])
		offset += nameEnd + 1

		if offset+17 > len(table) {
			break
		}

		entry := &Entry{
			Name:             normalizePath(name),
			CompressedSize:   binary.LittleEndian.Uint32(table[offset:]),
			AlignedSize:      binary.LittleEndian.Uint32(table[offset+4:]),
			UncompressedSize: binary.LittleEndian.Uint32(table[offset+8:]),
			Flags:            table[offset+12],
			Offset:           binary.LittleEndian.Uint32(table[offset+13:]),
		}
		offset += 17

		if entry.Flags&FlagFile != 0 {
			a.entries[entry.Name] = entry
		}
	}
	return nil
}

// index builds the sorted name list and the directory tree.
func (a *Archive) index() {
	a.names = make([]string, 0, len(a.entries))
	for name := range a.entries {
		a.names = append(a.names, name)
	}
	sort.Strings(a.names)

	seen := make(map[string]bool)
	for _, name := range a.names {
		child := name
		for {
			dir := path.Dir(child)
			key := dir + "/" + path.Base(child)
			if seen[key] {
				break
			}
			seen[key] = true
			a.dirs[dir] = append(a.dirs[dir], path.Base(child))
			if dir == "." {
				break
			}
			child = dir
		}
	}
	for dir := range a.dirs {
		sort.Strings(a.dirs[dir])
	}
}

// List returns all file paths in the archive, sorted.
func (a *Archive) List() []string {
	return append([]string(nil), a.names...)
}

// Contains checks if a file exists.
func (a *Archive) Contains(name string) bool {
	_, ok := a.entries[normalizePath(name)]
	return ok
}

// Entry returns the table entry for name.
func (a *Archive) Entry(name string) (*Entry, bool) {
	e, ok := a.entries[normalizePath(name)]
	return e, ok
}

// ReadFile returns the inflated contents of name.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	entry, ok := a.entries[normalizePath(name)]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	data, err := a.read(entry)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return data, nil
}

func (a *Archive) read(entry *Entry) ([]byte, error) {
	if entry.Encrypted() {
		return nil, ErrEncrypted
	}

	dataOffset := int64(entry.Offset) + HeaderSize
	if dataOffset+int64(entry.CompressedSize) > a.size {
		return nil, fmt.Errorf("entry %s: data past end of archive", entry.Name)
	}
	section := io.NewSectionReader(a.r, dataOffset, int64(entry.CompressedSize))

	if entry.CompressedSize == entry.UncompressedSize {
		data := make([]byte, entry.UncompressedSize)
		if _, err := io.ReadFull(section, data); err != nil {
			return nil, err
		}
		return data, nil
	}

	zr, err := zlib.NewReader(section)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", entry.Name, err)
	}
	defer zr.Close()

	data := make([]byte, entry.UncompressedSize)
	if _, err := io.ReadFull(zr, data); err != nil {
		return nil, fmt.Errorf("entry %s: %w", entry.Name, err)
	}
	return data, nil
}

func normalizePath(name string) string {
	name = encoding.NormalizeGRFPath(name)
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "."
	}
	return name
}
