package logger

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"regexp"
	"sort"
	"sync"
	"time"
)

type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

// CollectionConfig controls how repeated warnings and errors are folded
// before they are shipped to the log topic.
type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval
	CountThreshold int           // distinct entries that force an early flush
	Topic          string
	Publisher      Publisher
	// MinLevel is "warn" or "error" (default). Provider fallbacks log at warn.
	MinLevel string
	// IgnoreFields do not split entries; per-result ids and timings would
	// otherwise make every entry unique.
	IgnoreFields []string
}

type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

var defaultIgnoreFields = []string{"id", "latency", "backoff", "took"}

// Provider URLs carry credentials in the query string.
var secretParam = regexp.MustCompile(`((?:api_?key|apikey|token)=)[^&\s"]+`)

func redact(s string) string {
	return secretParam.ReplaceAllString(s, "${1}REDACTED")
}

type LogCollector struct {
	config *CollectionConfig
	warn   bool
	ignore map[string]struct{}
	logMap map[uint64]*AggregatedLogEntry
	mutex  sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	if config.TimeInterval <= 0 {
		config.TimeInterval = 30 * time.Second
	}
	if config.CountThreshold <= 0 {
		config.CountThreshold = 100
	}
	ignore := config.IgnoreFields
	if ignore == nil {
		ignore = defaultIgnoreFields
	}
	ctx, cancel := context.WithCancel(context.Background())

	d := &LogCollector{
		config: config,
		warn:   config.MinLevel == "warn",
		ignore: make(map[string]struct{}, len(ignore)),
		logMap: make(map[uint64]*AggregatedLogEntry),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, f := range ignore {
		d.ignore[f] = struct{}{}
	}

	d.wg.Add(1)
	go d.periodicFlush()
	return d
}

func (d *LogCollector) accepts(level string) bool {
	return level == "error" || (level == "warn" && d.warn)
}

func (d *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	if !d.accepts(level) {
		return
	}
	now := time.Now()
	for k, v := range fields {
		if s, ok := v.(string); ok {
			fields[k] = redact(s)
		}
	}
	key := d.entryKey(level, message, fields, caller)

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if entry, ok := d.logMap[key]; ok {
		entry.Count++
		entry.LastSeen = now
	} else {
		d.logMap[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if len(d.logMap) >= d.config.CountThreshold {
		d.flushLogs()
	}
}

func (d *LogCollector) entryKey(level, message string, fields map[string]interface{}, caller string) uint64 {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if _, skip := d.ignore[k]; !skip {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%s\x00%s", level, message, caller)
	for _, k := range keys {
		fmt.Fprintf(h, "\x00%s=%v", k, fields[k])
	}
	return h.Sum64()
}

func (d *LogCollector) periodicFlush() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.mutex.Lock()
			d.flushLogs()
			d.mutex.Unlock()
		case <-d.ctx.Done():
			d.mutex.Lock()
			d.flushLogs()
			d.mutex.Unlock()
			return
		}
	}
}

// flushLogs hands the folded entries to the publisher. Callers hold mutex.
func (d *LogCollector) flushLogs() {
	if len(d.logMap) == 0 {
		return
	}

	logs := make([]AggregatedLogEntry, 0, len(d.logMap))
	for _, entry := range d.logMap {
		logs = append(logs, *entry)
	}
	d.logMap = make(map[uint64]*AggregatedLogEntry)

	pub := d.config.Publisher
	if pub == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := pub.PublishMessage(ctx, d.config.Topic, logs); err != nil {
			fmt.Fprintf(os.Stderr, "failed to send aggregated logs: %v\n", err)
		}
	}()
}

// Pending returns the number of distinct entries waiting for the next flush.
func (d *LogCollector) Pending() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return len(d.logMap)
}

// Close stops the flusher after a final flush and waits for the publish.
func (d *LogCollector) Close() {
	d.cancel()
	d.wg.Wait()
}
