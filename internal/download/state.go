package download

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/routrace/mapgen/internal/logger"
)

// State is the replication state published next to an extract. Its
// timestamp is the OSM data time the extract was cut at.
type State struct {
	SequenceNumber int64
	Timestamp      time.Time
}

// String returns the state in a human-readable format
func (s State) String() string {
	return fmt.Sprintf("Sequence: %d, Timestamp: %s", s.SequenceNumber, s.Timestamp.Format(time.RFC3339))
}

// NewerThan reports whether s describes later data than other. A nil other
// is always older.
func (s *State) NewerThan(other *State) bool {
	if other == nil {
		return true
	}
	if s.SequenceNumber != other.SequenceNumber {
		return s.SequenceNumber > other.SequenceNumber
	}
	return s.Timestamp.After(other.Timestamp)
}

// ParseState parses a state.txt file content
// Format:
//
//	#comment line
//	sequenceNumber=12345
//	timestamp=2024-01-15T12\:00\:00Z
func ParseState(r io.Reader) (*State, error) {
	state := &State{}
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "sequenceNumber":
			seq, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid sequence number: %w", err)
			}
			state.SequenceNumber = seq

		case "timestamp":
			// state files escape colons as \:
			value = strings.ReplaceAll(value, `\:`, ":")
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return nil, fmt.Errorf("invalid timestamp %q: %w", value, err)
			}
			state.Timestamp = t.UTC()
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading state: %w", err)
	}
	return state, nil
}

// ReadStateFile reads a state file. A missing file yields nil, nil.
func ReadStateFile(path string) (*State, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseState(f)
}

// WriteStateFile writes a state file in the published format
func WriteStateFile(path string, state *State) error {
	ts := state.Timestamp.UTC().Format("2006-01-02T15:04:05Z")
	ts = strings.ReplaceAll(ts, ":", `\:`)

	content := fmt.Sprintf("# mapgen cached extract state\nsequenceNumber=%d\ntimestamp=%s\n", state.SequenceNumber, ts)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// FetchState downloads and parses a remote state.txt
func (f *Fetcher) FetchState(ctx context.Context, url string) (*State, error) {
	resp, err := f.fetchWithRetry(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return ParseState(resp.Body)
}

// statePath returns where the state of a cached file is kept
func (f *Fetcher) statePath(name string) string {
	return f.CachePath(name) + ".state.txt"
}

// Update makes sure the cache holds the extract at url. The cached copy is
// replaced when force is set or when the remote state is newer than the
// state recorded at the last download. The returned state is nil when the
// remote state could not be read.
func (f *Fetcher) Update(ctx context.Context, url, stateURL, name string, force bool) (string, *State, error) {
	log := logger.Named("download")

	remote, err := f.FetchState(ctx, stateURL)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		log.Warn("Could not read remote extract state", zap.String("url", stateURL), zap.Error(err))
	}

	local, err := ReadStateFile(f.statePath(name))
	if err != nil {
		log.Warn("Ignoring unreadable cached state", zap.Error(err))
		local = nil
	}

	if !force && remote != nil {
		if _, statErr := os.Stat(f.CachePath(name)); statErr == nil && remote.NewerThan(local) {
			log.Info("Newer extract available",
				zap.Time("remote", remote.Timestamp),
				zap.Int64("sequence", remote.SequenceNumber))
			force = true
		}
	}

	path, err := f.Fetch(ctx, url, name, force)
	if err != nil {
		return "", nil, err
	}

	state := local
	if remote != nil && (force || local == nil) {
		if err := WriteStateFile(f.statePath(name), remote); err != nil {
			return "", nil, err
		}
		state = remote
	}
	if state != nil {
		log.Info("Extract state",
			zap.Time("timestamp", state.Timestamp),
			zap.Duration("age", time.Since(state.Timestamp).Round(time.Minute)))
	}
	return path, state, nil
}
