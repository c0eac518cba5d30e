package processor

import (
	"maps"
	"strings"

	"go.uber.org/zap"

	"thmlconverter/state"
)

// MetaValue is a single collected bibliographic value with its source attributes.
type MetaValue struct {
	Value string
	Attrs map[string]string
}

// Metadata maps normalized field names ("dc:title", "dc:creator", ...) to
// ordered value lists. Field order follows first appearance, duplicate
// (value, attrs) pairs for the same field are suppressed.
type Metadata struct {
	names  []string
	fields map[string][]MetaValue
}

// NewMetadata creates empty metadata map.
func NewMetadata() *Metadata {
	return &Metadata{fields: make(map[string][]MetaValue)}
}

// Add appends a value to the named field unless an identical pair is already there.
func (m *Metadata) Add(name, value string, attrs map[string]string) {
	lst, ok := m.fields[name]
	if !ok {
		m.names = append(m.names, name)
	}
	for _, v := range lst {
		if v.Value == value && maps.Equal(v.Attrs, attrs) {
			return
		}
	}
	m.fields[name] = append(lst, MetaValue{Value: value, Attrs: attrs})
}

// Names returns field names in order of first appearance.
func (m *Metadata) Names() []string {
	return m.names
}

// Values returns all values collected for the field.
func (m *Metadata) Values(name string) []MetaValue {
	return m.fields[name]
}

// First returns the first value collected for the field.
func (m *Metadata) First(name string) (MetaValue, bool) {
	if lst := m.fields[name]; len(lst) > 0 {
		return lst[0], true
	}
	return MetaValue{}, false
}

// Merge folds other into m preserving order and deduplication rules.
func (m *Metadata) Merge(other *Metadata) {
	if other == nil {
		return
	}
	for _, name := range other.names {
		for _, v := range other.fields[name] {
			m.Add(name, v.Value, v.Attrs)
		}
	}
}

// metaFieldName normalizes a qualified source tag ("DC.Title") into the
// conventional field name ("dc:title").
func metaFieldName(tag string) string {
	return strings.ReplaceAll(strings.ToLower(tag), ".", ":")
}

// creatorRoles maps "sub" qualifiers used on creator fields to package-level
// role codes.
var creatorRoles = map[string]string{
	"Author":                   "aut",
	"Author of section":        "aut",
	"Author of Section":        "aut",
	"Author of Part":           "aut",
	"Adapter":                  "adp",
	"Annotator":                "ann",
	"Arranger":                 "arr",
	"Artist":                   "art",
	"Associated name":          "asn",
	"Bibliographic antecedent": "ant",
	"Book producer":            "bkp",
	"Collaborator":             "clb",
	"Commentator":              "cmm",
	"Designer":                 "dsr",
	"Editor":                   "edt",
	"Illustrator":              "ill",
	"Lyricist":                 "lyr",
	"Metadata contact":         "mdc",
	"Musician":                 "mus",
	"Narrator":                 "nrt",
	"Other":                    "oth",
	"Photographer":             "pht",
	"Printer":                  "prt",
	"Redactor":                 "red",
	"Reviewer":                 "rev",
	"Sponsor":                  "spn",
	"Thesis advisor":           "ths",
	"Transcriber":              "trc",
	"Translator":               "trl",
	"Translator and Editor":    "trl",
}

// mapCreatorRole resolves the role code for a creator qualifier, falling back
// to the generic "other" role for anything unrecognized.
func mapCreatorRole(sub string, env *state.LocalEnv) string {
	role, ok := creatorRoles[sub]
	if !ok {
		env.Log.Warn("Unhandled creator role qualifier", zap.String("sub", sub))
		env.Rpt.Add(rptUnknownRole, sub)
		return "oth"
	}
	return role
}
