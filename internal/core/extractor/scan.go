package extractor

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	scanPatternsMu sync.Mutex
	scanPatterns   = map[string]*regexp.Regexp{}
)

func stringFieldRegex(key string) *regexp.Regexp {
	scanPatternsMu.Lock()
	defer scanPatternsMu.Unlock()
	name := "s:" + key
	if re, ok := scanPatterns[name]; ok {
		return re
	}
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	scanPatterns[name] = re
	return re
}

func numberFieldRegex(key string) *regexp.Regexp {
	scanPatternsMu.Lock()
	defer scanPatternsMu.Unlock()
	name := "n:" + key
	if re, ok := scanPatterns[name]; ok {
		return re
	}
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*"?(\d+)"?`)
	scanPatterns[name] = re
	return re
}

// scanString searches the scripts for the first non-empty JSON string field
// named by keys. Keys are tried in priority order across all scripts.
func scanString(scripts []string, keys ...string) string {
	for _, key := range keys {
		re := stringFieldRegex(key)
		for _, script := range scripts {
			for _, m := range re.FindAllStringSubmatch(script, -1) {
				if v := unescapeJSON(m[1]); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

// scanInt searches the scripts for the first numeric field named by keys.
// Quoted numbers are accepted.
func scanInt(scripts []string, keys ...string) int64 {
	for _, key := range keys {
		re := numberFieldRegex(key)
		for _, script := range scripts {
			if m := re.FindStringSubmatch(script); m != nil {
				if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
					return n
				}
			}
		}
	}
	return 0
}

// unescapeJSON decodes a JSON string body, including \u002F style escapes
func unescapeJSON(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var v string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &v); err == nil {
		return v
	}
	r := strings.NewReplacer(`\u002F`, "/", `\u002f`, "/", `\/`, "/", `\u0026`, "&")
	return r.Replace(s)
}

// unixDate formats a unix timestamp in seconds as an RFC 3339 date
func unixDate(sec int64) string {
	if sec <= 0 {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
