package topic

import (
	"slices"
	"strings"
)

// Record is a topic row as stored in the catalog.
type Record struct {
	ID          string
	Name        string
	Description string
	Concepts    []string
	Curriculum  string
	Grade       int
	Subject     string
}

// Context is the descriptive text and key concepts of a topic, used for
// embedding and for validating generated questions.
type Context struct {
	topicID         string
	descriptiveText string
	relatedConcepts []string
	synthetic       bool
}

// FromRecord builds a Context from a catalog record.
// An empty description falls back to the topic name, then to the id.
func FromRecord(r Record) Context {
	text := strings.TrimSpace(r.Description)
	if text == "" {
		text = strings.TrimSpace(r.Name)
	}
	if text == "" {
		text = r.ID
	}
	concepts := make([]string, 0, len(r.Concepts))
	for _, c := range r.Concepts {
		if c = strings.TrimSpace(c); c != "" {
			concepts = append(concepts, c)
		}
	}
	return Context{topicID: r.ID, descriptiveText: text, relatedConcepts: concepts}
}

// Reconstruct creates a Context without normalization (tests, hydration).
func Reconstruct(topicID, descriptiveText string, relatedConcepts []string, synthetic bool) Context {
	return Context{
		topicID:         topicID,
		descriptiveText: descriptiveText,
		relatedConcepts: slices.Clone(relatedConcepts),
		synthetic:       synthetic,
	}
}

// TopicID returns the topic identifier.
func (c *Context) TopicID() string { return c.topicID }

// DescriptiveText returns the topic description.
func (c *Context) DescriptiveText() string { return c.descriptiveText }

// RelatedConcepts returns a copy of the ordered concept list.
func (c *Context) RelatedConcepts() []string { return slices.Clone(c.relatedConcepts) }

// Synthetic reports whether the context was fabricated from a structured id.
func (c *Context) Synthetic() bool { return c.synthetic }

// EmbeddingText is the text vectorized to represent the topic.
func (c *Context) EmbeddingText() string {
	if len(c.relatedConcepts) == 0 {
		return c.descriptiveText
	}
	return c.descriptiveText + ". Key concepts: " + strings.Join(c.relatedConcepts, ", ")
}
