// Package ontology resolves ontology intents to relationship IRIs from
// static configuration.
package ontology

import "context"

// StaticReader maps intents to relationship IRIs from configuration. An
// intent absent from the map is unmapped; callers decide how to degrade.
type StaticReader struct {
	intents map[string]string
}

// NewStaticReader creates a reader over a fixed intent mapping. Entries
// with empty IRIs are treated as unmapped.
func NewStaticReader(intents map[string]string) *StaticReader {
	copied := make(map[string]string, len(intents))
	for intent, iri := range intents {
		if iri != "" {
			copied[intent] = iri
		}
	}
	return &StaticReader{intents: copied}
}

// RelationshipIRIByIntent implements ports.OntologyReader
func (r *StaticReader) RelationshipIRIByIntent(ctx context.Context, intent string) (string, bool) {
	iri, ok := r.intents[intent]
	return iri, ok
}
