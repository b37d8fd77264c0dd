package meeting

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	// Webex recording name: Meeting Title-YYYYMMDD HHMM-1.vtt
	recordingPattern = regexp.MustCompile(`^(.+)-(\d{8})\s+(\d{2})(\d{2})-\d+$`)

	// Webex text export: Transcript_Owner_s meeting_YYYYMMDD
	transcriptPattern = regexp.MustCompile(`^Transcript_(.+)_(\d{8})$`)

	// Title - YYYYMMDD, Title_MMDDYYYY, Title 20250108
	titleDatePattern = regexp.MustCompile(`^(.+?)[\s_-]+(\d{8})$`)

	// ISO date prefix: 2025-01-08 Title
	isoPrefixPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[\s_-]+(.+)$`)

	titleDateSuffixes = []*regexp.Regexp{
		regexp.MustCompile(`[_\s]*\d{8}$`),
		regexp.MustCompile(`\s*-?\s*\d{8}\s+\d{4}-\d+$`),
	}
	whitespace = regexp.MustCompile(`\s+`)
)

// MeetingInfo is the title and date encoded in a file or directory name.
type MeetingInfo struct {
	Title string
	Date  time.Time
}

// Scan returns the transcript files under path, which may be a single file
// or a directory walked recursively. Chat logs and unknown files are skipped.
// Results are sorted by path.
func Scan(path string) ([]Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		src, ok := newSource(path, info)
		if !ok {
			return []Source{}, nil
		}
		return []Source{src}, nil
	}

	sources := make([]Source, 0)
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if src, ok := newSource(p, fi); ok {
			sources = append(sources, src)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Path < sources[j].Path })
	return sources, nil
}

func newSource(path string, fi fs.FileInfo) (Source, bool) {
	format := DetectFormat(filepath.Base(path))
	if format == "" {
		return Source{}, false
	}
	src := Source{Path: path, Format: format}

	meta := ExtractMeetingInfo(filepath.Base(path))
	if meta.Date.IsZero() {
		// Recordings are often stored as "<Title - date>/transcript.vtt".
		if dirMeta := ExtractMeetingInfo(filepath.Base(filepath.Dir(path))); !dirMeta.Date.IsZero() {
			meta = dirMeta
		}
	}
	src.Title = meta.Title
	src.Date = meta.Date
	src.DateFromName = !meta.Date.IsZero()
	if !src.DateFromName {
		src.Date = fi.ModTime()
	}
	return src, true
}

// DetectFormat returns the import format for a file name, or "" when the
// file is not a transcript.
func DetectFormat(filename string) string {
	lower := strings.ToLower(filename)
	if strings.HasPrefix(lower, ".") {
		return ""
	}
	switch filepath.Ext(lower) {
	case ".vtt":
		return FormatVTT
	case ".json":
		return FormatJSON
	case ".txt":
		if strings.HasPrefix(lower, "chat messages_") || strings.HasPrefix(lower, "chat_") {
			return ""
		}
		return FormatTXT
	}
	return ""
}

// ExtractMeetingInfo extracts a meeting title and date from a file or
// directory name. Dates are read as YYYYMMDD first, then MMDDYYYY.
func ExtractMeetingInfo(name string) MeetingInfo {
	if ext := filepath.Ext(name); DetectFormat(name) != "" {
		name = strings.TrimSuffix(name, ext)
	}

	if m := recordingPattern.FindStringSubmatch(name); m != nil {
		info := MeetingInfo{Title: strings.TrimSpace(m[1]), Date: parseDate(m[2])}
		if !info.Date.IsZero() {
			info.Date = info.Date.Add(time.Duration(atoi(m[3]))*time.Hour + time.Duration(atoi(m[4]))*time.Minute)
		}
		return info
	}
	if m := transcriptPattern.FindStringSubmatch(name); m != nil {
		return MeetingInfo{Title: strings.ReplaceAll(m[1], "_s meeting", "'s meeting"), Date: parseDate(m[2])}
	}
	if m := isoPrefixPattern.FindStringSubmatch(name); m != nil {
		if d, err := time.Parse("2006-01-02", m[1]); err == nil {
			return MeetingInfo{Title: strings.TrimSpace(m[2]), Date: d}
		}
	}
	if m := titleDatePattern.FindStringSubmatch(name); m != nil {
		date := parseDate(m[2])
		if date.IsZero() {
			date = parseDateMMDDYYYY(m[2])
		}
		return MeetingInfo{Title: strings.TrimSpace(m[1]), Date: date}
	}
	return MeetingInfo{Title: name}
}

func parseDate(s string) time.Time {
	t, err := time.Parse("20060102", s)
	if err != nil || t.Year() < 1990 {
		return time.Time{}
	}
	return t
}

func parseDateMMDDYYYY(s string) time.Time {
	if len(s) != 8 {
		return time.Time{}
	}
	return parseDate(s[4:8] + s[0:2] + s[2:4])
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

// NormalizeTitle strips date suffixes and collapses whitespace.
func NormalizeTitle(title string) string {
	for _, p := range titleDateSuffixes {
		title = p.ReplaceAllString(title, "")
	}
	title = strings.Trim(title, " -_")
	return whitespace.ReplaceAllString(strings.TrimSpace(title), " ")
}
