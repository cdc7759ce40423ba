package log

// Config sizes the segments of one partition
type Config struct {
	Segment struct {
		// offset of the first record of a new log
		InitialOffset uint64
		// a segment rolls over once its store reaches this size
		MaxStoreBytes uint64
		// a segment rolls over once its index reaches this size
		MaxIndexBytes uint64
	}
}

// TopicConfig describes a partitioned topic
type TopicConfig struct {
	Name       string
	Partitions uint32
	Log        Config
}
