package log

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	api "transactions/api/v1"
)

// Log is one ordered, append-only partition made of segments
type Log struct {
	mu sync.RWMutex

	Dir    string
	Config Config

	activeSegment *segment
	// oldest first
	segments []*segment
}

func NewLog(dir string, c Config) (*Log, error) {
	if c.Segment.MaxStoreBytes == 0 {
		c.Segment.MaxStoreBytes = 1024
	}
	if c.Segment.MaxIndexBytes == 0 {
		c.Segment.MaxIndexBytes = 1024
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	l := &Log{
		Dir:    dir,
		Config: c,
	}

	return l, l.setup()
}

// setup reopens the segments already on disk, or starts the first one
func (l *Log) setup() error {
	files, err := os.ReadDir(l.Dir)
	if err != nil {
		return err
	}

	var baseOffsets []uint64
	for _, file := range files {
		if filepath.Ext(file.Name()) != ".store" {
			continue
		}
		off, err := strconv.ParseUint(strings.TrimSuffix(file.Name(), ".store"), 10, 64)
		if err != nil {
			continue
		}
		baseOffsets = append(baseOffsets, off)
	}
	sort.Slice(baseOffsets, func(i, j int) bool {
		return baseOffsets[i] < baseOffsets[j]
	})

	for _, off := range baseOffsets {
		if err = l.newSegment(off); err != nil {
			return err
		}
	}
	if l.segments == nil {
		return l.newSegment(l.Config.Segment.InitialOffset)
	}
	return nil
}

// Append writes the record and returns its offset
func (l *Log) Append(record *api.Record) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	off, err := l.activeSegment.Append(record)
	if err != nil {
		return 0, err
	}
	if l.activeSegment.IsMaxed() {
		err = l.newSegment(off + 1)
	}
	return off, err
}

// Read returns the record at offset, or api.ErrOffsetOutOfRange
func (l *Log) Read(offset uint64) (*api.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, s := range l.segments {
		if s.Contains(offset) {
			return s.Read(offset)
		}
	}
	return nil, api.ErrOffsetOutOfRange{Offset: offset}
}

func (l *Log) LowestOffset() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.segments[0].baseOffset
}

// NextOffset is the offset the next appended record will get
func (l *Log) NextOffset() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.segments[len(l.segments)-1].nextOffset
}

// Truncate removes every segment whose records all sit below lowest
func (l *Log) Truncate(lowest uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var segments []*segment
	for _, s := range l.segments {
		if s.nextOffset <= lowest && s != l.activeSegment {
			if err := s.Remove(); err != nil {
				return err
			}
			continue
		}
		segments = append(segments, s)
	}
	l.segments = segments
	return nil
}

func (l *Log) newSegment(off uint64) error {
	s, err := newSegment(l.Dir, off, l.Config)
	if err != nil {
		return err
	}
	l.segments = append(l.segments, s)
	l.activeSegment = s
	return nil
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range l.segments {
		if err := s.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Remove closes the log and deletes its directory
func (l *Log) Remove() error {
	if err := l.Close(); err != nil {
		return err
	}
	return os.RemoveAll(l.Dir)
}
