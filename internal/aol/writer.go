package aol

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	gometrics "github.com/rcrowley/go-metrics"

	"github.com/finnegan-hale/meidkv/internal/metrics"
	"github.com/finnegan-hale/meidkv/internal/value"
)

const (
	flushInterval = 5 * time.Second

	// backpressureWindow is how long Enqueue will block a producer waiting
	// for the flush worker to drain before dropping the op on the floor,
	// per the "block briefly, then drop" policy documented in DESIGN.md
	// rather than unbounded buffering or blocking forever.
	backpressureWindow = flushInterval

	// highWaterMark is the pending-op depth at which Enqueue starts to
	// apply backpressure instead of accepting immediately.
	highWaterMark = 4096
)

// dirtyEntry is the coalesced state of one key since the last flush: only
// the most recent write or removal survives.
type dirtyEntry struct {
	removed bool
	value   value.Value
}

// Log is the append-only change log. One Log owns exclusive write access to
// its rotation directory; set/remove ops are coalesced per key and flushed
// to the active file on a 5-second tick and on Close. Once the active file
// reaches the configured rotation size, the next flush starts a new file.
type Log struct {
	dir         string
	rotateBytes int64

	queue *opQueue

	mu    sync.Mutex
	dirty map[string]*dirtyEntry
	order []string // insertion order, for reproducible flush output

	dropped gometrics.Counter
	flushed gometrics.Timer

	file    *os.File
	writer  *bufio.Writer
	written int64

	stop chan struct{}
	done chan struct{}
}

// Options configures a Log.
type Options struct {
	Dir string
	// RotateBytes is the file size, in bytes, past which a flush rotates to
	// a new file. Zero disables rotation.
	RotateBytes int64
	Metrics     *metrics.Registry
}

// Open opens (creating if necessary) the AOL directory and starts the
// background flush loop. The caller must call Close to flush pending state
// and release the file.
func Open(opts Options) (*Log, error) {
	if opts.Dir == "" {
		return nil, errors.New("aol: Dir is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "aol: create directory")
	}

	reg := opts.Metrics
	if reg == nil {
		reg = metrics.New()
	}

	l := &Log{
		dir:         opts.Dir,
		rotateBytes: opts.RotateBytes,
		queue:       newOpQueue(),
		dirty:       make(map[string]*dirtyEntry),
		dropped:     reg.AOLDropped,
		flushed:     reg.AOLFlush,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}

	// The AOL file itself is created lazily on the first mutation, not here.
	go l.run()
	return l, nil
}

// Enqueue hands a set or remove op to the AOL. It applies a backpressure
// policy: if the queue is already past its high-water mark it
// waits up to one flush interval for room, then drops the op and increments
// a metric rather than blocking the caller indefinitely.
func (l *Log) Enqueue(op *Op) bool {
	if l.queue.Pending() < highWaterMark {
		return l.queue.push(op)
	}

	deadline := time.NewTimer(backpressureWindow)
	defer deadline.Stop()
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if l.queue.Pending() < highWaterMark {
				return l.queue.push(op)
			}
		case <-deadline.C:
			l.dropped.Inc(1)
			return false
		}
	}
}

// Set is a convenience wrapper over Enqueue for a single-key write.
func (l *Log) Set(key string, v value.Value) bool {
	return l.Enqueue(&Op{Kind: OpSet, Key: key, Value: v})
}

// Remove is a convenience wrapper over Enqueue for a single-key removal.
func (l *Log) Remove(key string) bool {
	return l.Enqueue(&Op{Kind: OpRemove, Key: key})
}

func (l *Log) run() {
	defer close(l.done)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case op, ok := <-l.queue.recv():
			if !ok {
				l.flush()
				return
			}
			l.absorb(op)
		case <-ticker.C:
			l.flush()
		case <-l.stop:
			l.drainQueue()
			l.flush()
			return
		}
	}
}

// drainQueue absorbs whatever is left in the queue without blocking,
// called once during shutdown before the final flush.
func (l *Log) drainQueue() {
	for {
		select {
		case op, ok := <-l.queue.recv():
			if !ok {
				return
			}
			l.absorb(op)
		default:
			return
		}
	}
}

func (l *Log) absorb(op *Op) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.dirty[op.Key]; !exists {
		l.order = append(l.order, op.Key)
	}
	switch op.Kind {
	case OpSet:
		l.dirty[op.Key] = &dirtyEntry{value: op.Value}
	case OpRemove:
		l.dirty[op.Key] = &dirtyEntry{removed: true}
	}
}

// flush writes every coalesced key to the active file and clears the dirty
// buffer. Sets sharing an identical value are grouped onto one line.
func (l *Log) flush() {
	start := time.Now()
	defer func() { l.flushed.UpdateSince(start) }()

	l.mu.Lock()
	if len(l.dirty) == 0 {
		l.mu.Unlock()
		return
	}
	dirty := l.dirty
	order := l.order
	l.dirty = make(map[string]*dirtyEntry)
	l.order = nil
	l.mu.Unlock()

	var removeKeys []string
	groups := make(map[string][]string) // stringified value -> keys
	groupOrder := make([]string, 0, len(order))

	for _, key := range order {
		entry, ok := dirty[key]
		if !ok {
			continue
		}
		if entry.removed {
			removeKeys = append(removeKeys, key)
			continue
		}
		sv, err := Stringify(entry.value)
		if err != nil {
			continue
		}
		if _, seen := groups[sv]; !seen {
			groupOrder = append(groupOrder, sv)
		}
		groups[sv] = append(groups[sv], key)
	}

	sort.Strings(removeKeys)

	var lines []string
	for _, sv := range groupOrder {
		keys := groups[sv]
		sort.Strings(keys)
		lines = append(lines, joinSetLine(keys, sv))
	}
	if len(removeKeys) > 0 {
		line, err := StringifyRemoveLine(removeKeys)
		if err == nil {
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		return
	}

	if l.file == nil {
		if err := l.openNewFile(); err != nil {
			return
		}
	}
	l.writeLines(lines)
}

func joinSetLine(keys []string, stringifiedValue string) string {
	out := ""
	for _, k := range keys {
		out += k + "<"
	}
	return out + stringifiedValue
}

func (l *Log) writeLines(lines []string) {
	for _, line := range lines {
		n, err := l.writer.WriteString(line + "\n")
		if err != nil {
			continue
		}
		l.written += int64(n)
	}
	l.writer.Flush()
	l.file.Sync()

	// Rotation happens after the write that would cross the limit, not
	// before it - a single write is never split across files.
	if l.rotateBytes > 0 && l.written >= l.rotateBytes {
		l.rotate()
	}
}

// openNewFile opens a brand new `<unix_seconds>.sfb` file in the AOL
// directory and makes it the active file. If a file with that exact name
// already exists (two rotations inside the same second), it appends to it
// instead of clobbering it.
func (l *Log) openNewFile() error {
	name := fmt.Sprintf("%d.sfb", time.Now().Unix())
	path := filepath.Join(l.dir, name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "aol: open aol file")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return errors.Wrap(err, "aol: stat aol file")
	}
	l.file = f
	l.writer = bufio.NewWriter(f)
	l.written = info.Size()
	return nil
}

// rotate closes the current file and clears state so the next flush opens
// a fresh, newly-timestamped one. Called with no lock held; only the flush
// goroutine touches l.file.
func (l *Log) rotate() {
	l.writer.Flush()
	l.file.Close()
	l.file = nil
	l.writer = nil
	l.written = 0
}

// Pending reports the number of ops sitting in the queue, not yet absorbed
// into the dirty buffer. It does not count entries already absorbed and
// waiting on the next flush tick; those have left the queue.
func (l *Log) Pending() int64 {
	return l.queue.Pending()
}

// Close flushes any buffered ops, stops the background loop and releases
// the active file.
func (l *Log) Close() error {
	close(l.stop)
	<-l.done
	l.queue.close()

	if l.writer != nil {
		l.writer.Flush()
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
