package lom

import (
	"encoding/json"
	"fmt"
)

// Metadata wraps a record document and offers LOM-style mutators.
// Every Append* is overwrite-safe: appending a value that is already
// present leaves the document unchanged, so transforms may run any
// number of times over the same source data.
type Metadata struct {
	doc map[string]any
}

// Wrap takes ownership of an existing record document. A nil document
// starts an empty one.
func Wrap(doc map[string]any) *Metadata {
	if doc == nil {
		doc = map[string]any{}
	}
	return &Metadata{doc: doc}
}

// NewRecord builds the empty document for a freshly created entity,
// carrying its external pid block so future runs can resolve it.
func NewRecord(resourceType, pidValue string) *Metadata {
	return &Metadata{doc: map[string]any{
		"resource_type": map[string]any{"id": resourceType},
		"pids": map[string]any{
			"moodle": map[string]any{"provider": "moodle", "identifier": pidValue},
		},
		"metadata": map[string]any{},
	}}
}

// Document returns the underlying map. Mutations through the Metadata
// wrapper remain visible to previously returned documents.
func (m *Metadata) Document() map[string]any {
	return m.doc
}

// DeepCopy returns an independent copy of a record document.
func DeepCopy(doc map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("deep copy: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("deep copy: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func langstring(text, lang string) map[string]any {
	return map[string]any{"langstring": map[string]any{"lang": lang, "#text": text}}
}

func (m *Metadata) metadata() map[string]any {
	return m.section(m.doc, "metadata")
}

func (m *Metadata) section(parent map[string]any, name string) map[string]any {
	if s, ok := parent[name].(map[string]any); ok {
		return s
	}
	s := map[string]any{}
	parent[name] = s
	return s
}

func (m *Metadata) list(parent map[string]any, name string) []any {
	if l, ok := parent[name].([]any); ok {
		return l
	}
	return nil
}

// appendUnique appends entry to parent[name] unless an equal entry is
// already there. Equality is structural, via marshalled form.
func (m *Metadata) appendUnique(parent map[string]any, name string, entry any) {
	list := m.list(parent, name)
	entryRaw, _ := json.Marshal(entry)
	for _, existing := range list {
		existingRaw, _ := json.Marshal(existing)
		if string(existingRaw) == string(entryRaw) {
			return
		}
	}
	parent[name] = append(list, entry)
}

// SetTitle sets the localized title, replacing any previous one.
func (m *Metadata) SetTitle(text, lang string) {
	general := m.section(m.metadata(), "general")
	general["title"] = langstring(text, lang)
}

// AppendIdentifier records an external identifier under a catalog.
func (m *Metadata) AppendIdentifier(entry, catalog string) {
	general := m.section(m.metadata(), "general")
	m.appendUnique(general, "identifier", map[string]any{
		"catalog": catalog,
		"entry":   langstring(entry, "x-none"),
	})
}

func (m *Metadata) AppendLanguage(lang string) {
	general := m.section(m.metadata(), "general")
	m.appendUnique(general, "language", lang)
}

func (m *Metadata) AppendDescription(text, lang string) {
	general := m.section(m.metadata(), "general")
	m.appendUnique(general, "description", langstring(text, lang))
}

func (m *Metadata) AppendKeyword(text, lang string) {
	general := m.section(m.metadata(), "general")
	m.appendUnique(general, "keyword", langstring(text, lang))
}

// AppendContribute adds a named entity under the given role. Entities
// with the same name and role collapse into one entry.
func (m *Metadata) AppendContribute(name, role string) {
	lifecycle := m.section(m.metadata(), "lifecycle")
	contributes := m.list(lifecycle, "contribute")
	for _, c := range contributes {
		entry, ok := c.(map[string]any)
		if !ok || entry["role"] != role {
			continue
		}
		entities, _ := entry["entity"].([]any)
		for _, e := range entities {
			if e == name {
				return
			}
		}
		entry["entity"] = append(entities, name)
		return
	}
	lifecycle["contribute"] = append(contributes, map[string]any{
		"role":   role,
		"entity": []any{name},
	})
}

// SetDatetime sets the lifecycle datetime (day precision, ISO form).
func (m *Metadata) SetDatetime(date string) {
	lifecycle := m.section(m.metadata(), "lifecycle")
	lifecycle["datetime"] = date
}

func (m *Metadata) AppendFormat(mime string) {
	technical := m.section(m.metadata(), "technical")
	m.appendUnique(technical, "format", mime)
}

func (m *Metadata) SetSize(size string) {
	technical := m.section(m.metadata(), "technical")
	technical["size"] = size
}

// AppendLearningResourceType appends a controlled hcrt vocabulary term.
func (m *Metadata) AppendLearningResourceType(term string) {
	educational := m.section(m.metadata(), "educational")
	m.appendUnique(educational, "learningresourcetype", map[string]any{
		"id": "https://w3id.org/kim/hcrt/" + term,
	})
}

func (m *Metadata) AppendContext(context string) {
	educational := m.section(m.metadata(), "educational")
	m.appendUnique(educational, "context", context)
}

func (m *Metadata) SetRightsURL(url string) {
	rights := m.section(m.metadata(), "rights")
	rights["url"] = url
}

// AppendClassificationID appends an OEFOS discipline identifier. Pass a
// language code to additionally tag the entry.
func (m *Metadata) AppendClassificationID(id string, langCodes ...string) {
	metadata := m.metadata()
	entry := map[string]any{"taxonid": id}
	if len(langCodes) > 0 {
		entry["lang"] = langCodes[0]
	}
	m.appendUnique(metadata, "classification", entry)
}

// AppendRelation records a typed relation to another record.
func (m *Metadata) AppendRelation(pid, kind string) {
	metadata := m.metadata()
	m.appendUnique(metadata, "relation", map[string]any{
		"kind":     kind,
		"resource": map[string]any{"id": pid},
	})
}
