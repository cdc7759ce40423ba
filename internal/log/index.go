package log

import (
	"io"
	"os"

	"github.com/tysontate/gommap"
)

// an index entry maps a segment-relative offset to a position in the store
var (
	offWidth   uint64 = 4
	posWidth   uint64 = 8
	entryWidth        = offWidth + posWidth
)

type index struct {
	file *os.File
	mmap gommap.MMap
	// bytes in use, which is also where the next entry goes
	size uint64
}

func newIndex(f *os.File, c Config) (*index, error) {
	fi, err := os.Stat(f.Name())
	if err != nil {
		return nil, err
	}
	i := &index{
		file: f,
		size: uint64(fi.Size()),
	}

	// a mapped file can't grow, so it is sized to its maximum up front
	if err = os.Truncate(f.Name(), int64(c.Segment.MaxIndexBytes)); err != nil {
		return nil, err
	}
	i.mmap, err = gommap.Map(
		i.file.Fd(),
		gommap.PROT_READ|gommap.PROT_WRITE,
		gommap.MAP_SHARED,
	)
	if err != nil {
		return nil, err
	}

	return i, nil
}

// Read returns the entry at the relative offset in, or the last entry when in is -1.
// Reading an empty index or past the last entry returns io.EOF.
func (i *index) Read(in int64) (out uint32, pos uint64, err error) {
	if i.size == 0 {
		return 0, 0, io.EOF
	}

	entry := uint64(in)
	if in == -1 {
		entry = i.size/entryWidth - 1
	}
	at := entry * entryWidth
	if i.size < at+entryWidth {
		return 0, 0, io.EOF
	}

	out = enc.Uint32(i.mmap[at : at+offWidth])
	pos = enc.Uint64(i.mmap[at+offWidth : at+entryWidth])
	return out, pos, nil
}

// Write appends an entry, returning io.EOF once the index is full
func (i *index) Write(off uint32, pos uint64) error {
	if uint64(len(i.mmap)) < i.size+entryWidth {
		return io.EOF
	}

	enc.PutUint32(i.mmap[i.size:i.size+offWidth], off)
	enc.PutUint64(i.mmap[i.size+offWidth:i.size+entryWidth], pos)
	i.size += entryWidth
	return nil
}

func (i *index) Name() string {
	return i.file.Name()
}

// Close syncs the mapping and trims the file back to the entries it holds,
// so a reopened index finds its last entry at the end of the file.
func (i *index) Close() error {
	if err := i.mmap.Sync(gommap.MS_SYNC); err != nil {
		return err
	}
	if err := i.file.Sync(); err != nil {
		return err
	}
	if err := i.mmap.UnsafeUnmap(); err != nil {
		return err
	}
	if err := i.file.Truncate(int64(i.size)); err != nil {
		return err
	}
	return i.file.Close()
}
