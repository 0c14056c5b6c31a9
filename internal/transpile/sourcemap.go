package transpile

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// SourceMap is a minimal decoded view of a v3 source map: enough to look
// up which original source location a generated line:column came from.
// It does not implement the full source-map spec (no index maps, no
// sourcesContent decoding) since stack-frame remapping only needs
// line/column lookup.
type SourceMap struct {
	Version int      `json:"version"`
	Sources []string `json:"sources"`
	Names   []string `json:"names"`
	File    string   `json:"file"`

	lines [][]segment
}

type segment struct {
	genCol    int
	srcIndex  int
	srcLine   int
	srcCol    int
	nameIndex int
	hasName   bool
}

// ParseSourceMap decodes a v3 JSON source map and its VLQ-encoded mappings.
func ParseSourceMap(data []byte) (*SourceMap, error) {
	var raw struct {
		Version  int      `json:"version"`
		Sources  []string `json:"sources"`
		Names    []string `json:"names"`
		File     string   `json:"file"`
		Mappings string   `json:"mappings"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse source map: %w", err)
	}
	if raw.Version != 3 {
		return nil, fmt.Errorf("unsupported source map version %d", raw.Version)
	}

	sm := &SourceMap{Version: raw.Version, Sources: raw.Sources, Names: raw.Names, File: raw.File}
	sm.lines = decodeMappings(raw.Mappings)
	return sm, nil
}

// decodeMappings parses the semicolon/comma VLQ mapping grammar into one
// segment slice per generated line. Each field in a segment is stored as
// an absolute value; VLQ fields are deltas relative to the previous value
// in the same category (per spec: genCol relative to previous segment on
// the line, the rest relative to the previous mapped segment overall).
func decodeMappings(mappings string) [][]segment {
	var lines [][]segment
	var cur []segment

	genCol, srcIndex, srcLine, srcCol, nameIndex := 0, 0, 0, 0, 0

	for _, lineStr := range strings.Split(mappings, ";") {
		genCol = 0
		if lineStr != "" {
			for _, seg := range strings.Split(lineStr, ",") {
				if seg == "" {
					continue
				}
				vals, ok := decodeVLQSegment(seg)
				if !ok || len(vals) < 1 {
					continue
				}
				genCol += vals[0]
				s := segment{genCol: genCol}
				if len(vals) >= 4 {
					srcIndex += vals[1]
					srcLine += vals[2]
					srcCol += vals[3]
					s.srcIndex, s.srcLine, s.srcCol = srcIndex, srcLine, srcCol
				}
				if len(vals) >= 5 {
					nameIndex += vals[4]
					s.nameIndex = nameIndex
					s.hasName = true
				}
				cur = append(cur, s)
			}
		}
		lines = append(lines, cur)
		cur = nil
	}
	return lines
}

const base64VLQChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

func decodeVLQSegment(s string) ([]int, bool) {
	var values []int
	shift, result := 0, 0
	for i := 0; i < len(s); i++ {
		digit := strings.IndexByte(base64VLQChars, s[i])
		if digit < 0 {
			return nil, false
		}
		cont := digit&32 != 0
		digit &= 31
		result += digit << shift
		if cont {
			shift += 5
			continue
		}
		negate := result&1 != 0
		value := result >> 1
		if negate {
			value = -value
		}
		values = append(values, value)
		shift, result = 0, 0
	}
	return values, true
}

// Lookup finds the original source location for a 0-based generated
// line/column. It returns the nearest segment at or before col on that
// line, matching how stack traces are conventionally remapped, or the
// line's first segment when every segment starts after col.
func (sm *SourceMap) Lookup(line, col int) (source string, srcLine, srcCol int, ok bool) {
	if line < 0 || line >= len(sm.lines) {
		return "", 0, 0, false
	}
	segs := sm.lines[line]
	if len(segs) == 0 {
		return "", 0, 0, false
	}

	best := -1
	for i, s := range segs {
		if s.genCol <= col {
			best = i
		} else {
			break
		}
	}
	if best < 0 {
		best = 0
	}

	s := segs[best]
	src := "<unknown>"
	if s.srcIndex >= 0 && s.srcIndex < len(sm.Sources) {
		src = sm.Sources[s.srcIndex]
	}
	return src, s.srcLine, s.srcCol, true
}

// stackFrameLocation matches a whole "<file>:<line>:<col>" token (the V8
// stack-frame location, with or without surrounding parens) so remapping
// replaces the generated filename along with its position, not just the
// trailing ":line:col" suffix.
var stackFrameLocation = regexp.MustCompile(`([^\s()]+):(\d+):(\d+)`)

// SourceMapRegistry holds one source map per plugin and remaps raw
// generated-JS stack traces back to original source locations.
type SourceMapRegistry struct {
	mu   sync.RWMutex
	maps map[string]*SourceMap
}

// NewSourceMapRegistry returns an empty registry.
func NewSourceMapRegistry() *SourceMapRegistry {
	return &SourceMapRegistry{maps: make(map[string]*SourceMap)}
}

// Register parses and stores a source map for pluginID. A parse failure
// is swallowed: the plugin simply has no map and its stacks pass through
// unmodified, matching how a missing/broken map should never break
// execution.
func (r *SourceMapRegistry) Register(pluginID string, mapJSON []byte) {
	sm, err := ParseSourceMap(mapJSON)
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maps[pluginID] = sm
}

// HasMap reports whether pluginID has a registered source map.
func (r *SourceMapRegistry) HasMap(pluginID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.maps[pluginID]
	return ok
}

// Unregister removes pluginID's source map, reporting whether one existed.
func (r *SourceMapRegistry) Unregister(pluginID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.maps[pluginID]; !ok {
		return false
	}
	delete(r.maps, pluginID)
	return true
}

// RemapStack rewrites the first "file:line:col" location on each line of
// rawStack using pluginID's source map, falling back to the original text for any frame
// it can't resolve (including when no map is registered at all).
func (r *SourceMapRegistry) RemapStack(pluginID, rawStack string) string {
	r.mu.RLock()
	sm, ok := r.maps[pluginID]
	r.mu.RUnlock()
	if !ok {
		return rawStack
	}

	lines := strings.Split(rawStack, "\n")
	for i, line := range lines {
		lines[i] = remapFrame(line, sm)
	}
	return strings.Join(lines, "\n")
}

func remapFrame(frame string, sm *SourceMap) string {
	loc := stackFrameLocation.FindStringSubmatchIndex(frame)
	if loc == nil {
		return frame
	}
	lineStr := frame[loc[4]:loc[5]]
	colStr := frame[loc[6]:loc[7]]

	line, err := strconv.Atoi(lineStr)
	if err != nil {
		return frame
	}
	col, err := strconv.Atoi(colStr)
	if err != nil {
		return frame
	}

	src, srcLine, srcCol, ok := sm.Lookup(line-1, col-1)
	if !ok {
		return frame
	}

	replacement := fmt.Sprintf("%s:%d:%d", src, srcLine+1, srcCol+1)
	return frame[:loc[0]] + replacement + frame[loc[1]:]
}
