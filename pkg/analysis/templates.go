package analysis

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	mtaerrors "github.com/ggs134/meeting-transcript-analyzer/pkg/errors"
)

//go:embed templates/templates.json
var builtinTemplates string

// Template names with special handling.
const (
	TemplateDefault             = "default"
	TemplateComprehensiveReview = "comprehensive_review"
	TemplateDailyReport         = "daily_report"
	TemplateCustom              = "custom"

	// VersionLatest selects the version flagged is_latest.
	VersionLatest = "latest"
)

// FallbackTemplate is used when a requested template name is unknown.
const FallbackTemplate = `회의록을 바탕으로 참여자별로 다음의 내용을 추출하고 정리해.

**각 참여자가 무엇을 했는지, 무엇을 할 것인지 정리하는 것이 목표야.**

1. 아이디어
2. 업무 조율
3. 업무 보고
4. 양적 기여도
`

// TemplateEntry is one version of a template as stored in the registry file.
type TemplateEntry struct {
	Content     string `json:"content" validate:"required"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	Author      string `json:"author"`
	IsLatest    bool   `json:"is_latest"`
}

type registryFile struct {
	Templates map[string]map[string]TemplateEntry `json:"templates"`
}

// Template is a resolved template version.
type Template struct {
	Name    string
	Version string
	TemplateEntry
}

// TemplateInfo summarizes a template for listings.
type TemplateInfo struct {
	Name          string   `json:"name"`
	LatestVersion string   `json:"latest_version"`
	Versions      []string `json:"versions"`
	Description   string   `json:"description"`
	Author        string   `json:"author,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
}

// TemplateRegistry holds every version of every template. It is immutable
// after construction and safe for concurrent use.
type TemplateRegistry struct {
	templates map[string]map[string]TemplateEntry
	latest    map[string]string
}

// LoadTemplates reads a registry from r.
func LoadTemplates(r io.Reader) (*TemplateRegistry, error) {
	var file registryFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding template registry: %w", err)
	}

	reg := &TemplateRegistry{
		templates: make(map[string]map[string]TemplateEntry, len(file.Templates)),
		latest:    make(map[string]string, len(file.Templates)),
	}
	for name, versions := range file.Templates {
		if len(versions) == 0 {
			continue
		}
		byVersion := make(map[string]TemplateEntry, len(versions))
		var latest string
		for version, entry := range versions {
			if err := validateStruct(entry); err != nil {
				return nil, fmt.Errorf("template %s@%s: %w", name, version, err)
			}
			if entry.Author == "" {
				entry.Author = "system"
			}
			byVersion[version] = entry
			if entry.IsLatest && (latest == "" || compareVersions(version, latest) > 0) {
				latest = version
			}
		}
		if latest == "" {
			sorted := sortVersions(byVersion)
			latest = sorted[len(sorted)-1]
		}
		reg.templates[name] = byVersion
		reg.latest[name] = latest
	}
	return reg, nil
}

// LoadTemplateFile reads a registry from a JSON file.
func LoadTemplateFile(path string) (*TemplateRegistry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening template registry: %w", err)
	}
	defer f.Close()
	return LoadTemplates(f)
}

// BuiltinTemplates returns the registry compiled into the binary.
func BuiltinTemplates() *TemplateRegistry {
	reg, err := LoadTemplates(strings.NewReader(builtinTemplates))
	if err != nil {
		panic(fmt.Sprintf("builtin templates: %v", err))
	}
	return reg
}

// Has reports whether name is registered.
func (r *TemplateRegistry) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// LatestVersion returns the version "latest" resolves to for name.
func (r *TemplateRegistry) LatestVersion(name string) (string, bool) {
	v, ok := r.latest[name]
	return v, ok
}

// Get returns a specific version of name. An empty version or "latest"
// resolves to the latest version. Unknown names or versions return
// ErrTemplateNotFound.
func (r *TemplateRegistry) Get(name, version string) (Template, error) {
	versions, ok := r.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("template %q: %w", name, mtaerrors.ErrTemplateNotFound)
	}
	if version == "" || version == VersionLatest {
		version = r.latest[name]
	}
	entry, ok := versions[version]
	if !ok {
		return Template{}, fmt.Errorf("template %q version %q: %w", name, version, mtaerrors.ErrTemplateNotFound)
	}
	return Template{Name: name, Version: version, TemplateEntry: entry}, nil
}

// Versions returns the versions of name in ascending order.
func (r *TemplateRegistry) Versions(name string) []string {
	versions, ok := r.templates[name]
	if !ok {
		return nil
	}
	return sortVersions(versions)
}

// List describes every template by its latest version, sorted by name.
func (r *TemplateRegistry) List() []TemplateInfo {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]TemplateInfo, 0, len(names))
	for _, name := range names {
		latest := r.latest[name]
		entry := r.templates[name][latest]
		out = append(out, TemplateInfo{
			Name:          name,
			LatestVersion: latest,
			Versions:      r.Versions(name),
			Description:   entry.Description,
			Author:        entry.Author,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return out
}

// Selection is the template text chosen for one analysis together with the
// name and version recorded in the result.
type Selection struct {
	Name string
	// Version is nil for custom templates and unknown names.
	Version *string
	Content string
	// Fallback is set when the name was unknown and FallbackTemplate was used.
	Fallback bool
}

// Select resolves name and version the lenient way analyses do: an unknown
// name yields FallbackTemplate, an unknown version yields the latest version.
func (r *TemplateRegistry) Select(name, version string) Selection {
	if _, ok := r.templates[name]; !ok {
		return Selection{Name: name, Content: FallbackTemplate, Fallback: true}
	}
	tpl, err := r.Get(name, version)
	if err != nil {
		tpl, _ = r.Get(name, VersionLatest)
	}
	v := tpl.Version
	return Selection{Name: name, Version: &v, Content: tpl.Content}
}

// MinCustomTemplateLength is the shortest accepted custom template, in characters.
const MinCustomTemplateLength = 50

// ValidateCustomTemplate checks a user-supplied template.
func ValidateCustomTemplate(content string) error {
	if len([]rune(strings.TrimSpace(content))) < MinCustomTemplateLength {
		return fmt.Errorf("custom template must be at least %d characters: %w", MinCustomTemplateLength, mtaerrors.ErrValidation)
	}
	return nil
}

// CustomSelection wraps a validated custom template.
func CustomSelection(content string) (Selection, error) {
	if err := ValidateCustomTemplate(content); err != nil {
		return Selection{}, err
	}
	return Selection{Name: TemplateCustom, Content: content}, nil
}

// VersionAtLeast reports whether version is numerically >= minVersion. Versions
// that do not parse compare as 0.
func VersionAtLeast(version *string, minVersion float64) bool {
	if version == nil {
		return false
	}
	f, err := strconv.ParseFloat(*version, 64)
	if err != nil {
		return false
	}
	return f >= minVersion
}

func sortVersions(versions map[string]TemplateEntry) []string {
	out := make([]string, 0, len(versions))
	for v := range versions {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return compareVersions(out[i], out[j]) < 0 })
	return out
}

// compareVersions orders dotted versions numerically per segment, falling
// back to string comparison for non-numeric segments.
func compareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var x, y string
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		xn, xerr := strconv.Atoi(x)
		yn, yerr := strconv.Atoi(y)
		switch {
		case xerr == nil && yerr == nil:
			if xn != yn {
				if xn < yn {
					return -1
				}
				return 1
			}
		case x != y:
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}
