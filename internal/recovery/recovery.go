package recovery

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/finnegan-hale/meidkv/internal/aol"
	"github.com/finnegan-hale/meidkv/internal/engine"
	"github.com/finnegan-hale/meidkv/internal/logx"
)

var sfbFilename = regexp.MustCompile(`^[0-9]+\.sfb$`)

// Result summarizes one recovery run, surfaced through serve's startup log
// line and the info command's aol section.
type Result struct {
	FilesReplayed int
	FilesFailed   []string
	LinesApplied  int
}

// Run enumerates every `<unix_seconds>.sfb` file in dir, sorted
// lexicographically (equivalent to numeric order for fixed-width unix
// timestamps), and replays each into eng in order. A missing directory is
// not an error - a fresh database has none yet. After every file has been
// replayed, the shard selector is re-seeded so a newly-inserted key after
// restart continues the round-robin rotation instead of resetting to shard
// zero.
func Run(dir string, eng *engine.Engine, logger *logx.Logger) (Result, error) {
	if logger == nil {
		logger = logx.New("recovery")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, nil
		}
		return Result{}, errors.Wrap(err, "recovery: read aol directory")
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if sfbFilename.MatchString(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var result Result
	for _, name := range names {
		applied, err := replayFile(filepath.Join(dir, name), eng)
		if err != nil {
			logger.Warnf("skipping unreadable aol file %s: %v", name, err)
			result.FilesFailed = append(result.FilesFailed, name)
			continue
		}
		result.FilesReplayed++
		result.LinesApplied += applied
	}

	reseedSelector(eng)

	logger.Infof("replayed %d line(s) from %d file(s), %d failed",
		result.LinesApplied, result.FilesReplayed, len(result.FilesFailed))
	return result, nil
}

// replayFile applies every well-formed line in path to eng, in file order,
// via the AOL-suppressed replay path. A trailing line that doesn't end in
// "\n" is a partial write from a crash mid-flush and is silently dropped
// rather than applied, per the AOL's documented crash semantics.
func replayFile(path string, eng *engine.Engine) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "recovery: open aol file")
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	applied := 0

	for {
		raw, err := reader.ReadString('\n')
		if err != nil {
			// Whatever's left in raw (if anything) is an unterminated final
			// line - a crash mid-write. Discard it and stop.
			break
		}
		line := strings.TrimRight(raw, "\r\n")

		switch {
		case aol.IsComment(line):
			continue
		case aol.IsRemoveLine(line):
			keys, err := aol.ParseRemoveLine(line)
			if err != nil {
				continue
			}
			for _, key := range keys {
				eng.RemoveReplay(key)
			}
			applied++
		case aol.IsSetLine(line):
			entries, err := aol.ParseSetLine(line)
			if err != nil {
				continue
			}
			for key, v := range entries {
				if _, err := eng.SetReplay(key, v); err != nil {
					continue
				}
			}
			applied++
		}
	}

	return applied, nil
}

// reseedSelector advances the shard selector past the highest shard index
// any live key was assigned during replay, so round-robin allocation
// resumes where it left off instead of restarting at shard zero. With no
// live keys there's nothing to seed from.
func reseedSelector(eng *engine.Engine) {
	stats := eng.Stats()
	if len(stats.ShardCounts) == 0 {
		return
	}
	maxShard := 0
	for shard := range stats.ShardCounts {
		if shard > maxShard {
			maxShard = shard
		}
	}
	eng.Selector().SeedAfter(maxShard)
}
