// Package platform classifies social-media URLs and validates their hosts.
package platform

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Tag identifies a supported platform.
type Tag string

const (
	TikTok    Tag = "tiktok"
	Instagram Tag = "instagram"
	Pinterest Tag = "pinterest"
	Facebook  Tag = "facebook"
	Likee     Tag = "likee"
	YouTube   Tag = "youtube"
	Twitter   Tag = "twitter"
	Unknown   Tag = "unknown"
)

// ErrHostNotAllowed is returned when a URL's host is not on the platform allow-list.
var ErrHostNotAllowed = errors.New("host not allowed")

type entry struct {
	tag      Tag
	display  string
	patterns []string
	hosts    mapset.Set[string]
}

// table order is the classification priority
var table = []entry{
	{
		tag:      TikTok,
		display:  "TikTok",
		patterns: []string{"tiktok.com", "vm.tiktok.com", "vt.tiktok.com"},
		hosts: mapset.NewSet(
			"tiktok.com", "www.tiktok.com", "m.tiktok.com",
			"vm.tiktok.com", "vt.tiktok.com",
		),
	},
	{
		tag:      Instagram,
		display:  "Instagram",
		patterns: []string{"instagram.com", "instagr.am"},
		hosts: mapset.NewSet(
			"instagram.com", "www.instagram.com", "m.instagram.com",
			"instagr.am", "www.instagr.am",
		),
	},
	{
		tag:      Pinterest,
		display:  "Pinterest",
		patterns: []string{"pinterest.com", "pin.it"},
		hosts: mapset.NewSet(
			"pinterest.com", "www.pinterest.com", "pin.it",
			"in.pinterest.com", "uk.pinterest.com", "de.pinterest.com",
			"fr.pinterest.com", "br.pinterest.com",
		),
	},
	{
		tag:      Facebook,
		display:  "Facebook",
		patterns: []string{"facebook.com", "fb.watch", "fb.com"},
		hosts: mapset.NewSet(
			"facebook.com", "www.facebook.com", "m.facebook.com",
			"web.facebook.com", "fb.watch", "fb.com", "www.fb.com",
		),
	},
	{
		tag:      Likee,
		display:  "Likee",
		patterns: []string{"likee.video", "l.likee.video"},
		hosts: mapset.NewSet(
			"likee.video", "www.likee.video", "l.likee.video", "mobile.likee.video",
		),
	},
	{
		tag:      YouTube,
		display:  "YouTube",
		patterns: []string{"youtube.com", "youtu.be"},
		hosts: mapset.NewSet(
			"youtube.com", "www.youtube.com", "m.youtube.com",
			"music.youtube.com", "youtu.be",
		),
	},
	{
		tag:      Twitter,
		display:  "Twitter",
		patterns: []string{"twitter.com", "x.com"},
		hosts: mapset.NewSet(
			"twitter.com", "www.twitter.com", "mobile.twitter.com",
			"x.com", "www.x.com", "mobile.x.com",
		),
	},
}

// Classify maps a URL to the first platform whose domain appears in it.
// It never fails: anything unrecognized is Unknown.
func Classify(rawURL string) Tag {
	s := strings.ToLower(strings.TrimSpace(rawURL))
	for _, e := range table {
		for _, p := range e.patterns {
			if containsDomain(s, p) {
				return e.tag
			}
		}
	}
	return Unknown
}

// containsDomain reports whether domain occurs in s at a label boundary,
// so "x.com" matches "https://x.com/a" but not "netflix.com".
func containsDomain(s, domain string) bool {
	for i := 0; i < len(s); {
		j := strings.Index(s[i:], domain)
		if j < 0 {
			return false
		}
		at := i + j
		if at == 0 || !isHostChar(s[at-1]) {
			return true
		}
		i = at + 1
	}
	return false
}

func isHostChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-'
}

// ValidateHost requires the URL to be http(s) and its exact hostname to be on
// the allow-list for tag. Unknown tags are always rejected.
func ValidateHost(rawURL string, tag Tag) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHostNotAllowed, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrHostNotAllowed, u.Scheme)
	}
	e := lookup(tag)
	if e == nil {
		return fmt.Errorf("%w: unsupported platform %q", ErrHostNotAllowed, tag)
	}
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		return fmt.Errorf("%w: port %s", ErrHostNotAllowed, port)
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrHostNotAllowed)
	}
	if !e.hosts.Contains(host) {
		return fmt.Errorf("%w: %s is not a %s host", ErrHostNotAllowed, host, e.display)
	}
	return nil
}

// Tags returns every supported platform in classification order.
func Tags() []Tag {
	tags := make([]Tag, 0, len(table))
	for _, e := range table {
		tags = append(tags, e.tag)
	}
	return tags
}

// Parse converts a path segment such as "tiktok" into a Tag.
func Parse(name string) (Tag, bool) {
	e := lookup(Tag(strings.ToLower(strings.TrimSpace(name))))
	if e == nil {
		return Unknown, false
	}
	return e.tag, true
}

// Hosts returns the sorted allow-list for tag.
func Hosts(tag Tag) []string {
	e := lookup(tag)
	if e == nil {
		return nil
	}
	hosts := e.hosts.ToSlice()
	sort.Strings(hosts)
	return hosts
}

// Domains returns the classification patterns for tag.
func Domains(tag Tag) []string {
	e := lookup(tag)
	if e == nil {
		return nil
	}
	return append([]string(nil), e.patterns...)
}

func (t Tag) String() string { return string(t) }

// DisplayName returns the human-readable platform name.
func (t Tag) DisplayName() string {
	if e := lookup(t); e != nil {
		return e.display
	}
	return "Unknown"
}

func lookup(tag Tag) *entry {
	for i := range table {
		if table[i].tag == tag {
			return &table[i]
		}
	}
	return nil
}
