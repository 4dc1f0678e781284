package topic

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// syntheticIDRegex matches <curriculum>_grade<N>_<subject>_<ordinal>,
// e.g. "cbse_grade8_earth-science_3".
var syntheticIDRegex = regexp.MustCompile(
	`^([A-Za-z0-9]+)_grade(\d{1,2})_([A-Za-z]+(?:-[A-Za-z]+)*)_(\d{1,4})$`,
)

// SyntheticID is a decoded structured topic identifier.
type SyntheticID struct {
	Curriculum string
	Grade      int
	Subject    string
	Ordinal    int
}

// ParseSyntheticID decodes a structured topic id. ok is false when id does not follow the pattern.
func ParseSyntheticID(id string) (SyntheticID, bool) {
	m := syntheticIDRegex.FindStringSubmatch(id)
	if m == nil {
		return SyntheticID{}, false
	}
	grade, err := strconv.Atoi(m[2])
	if err != nil || grade == 0 {
		return SyntheticID{}, false
	}
	ordinal, err := strconv.Atoi(m[4])
	if err != nil {
		return SyntheticID{}, false
	}
	return SyntheticID{
		Curriculum: strings.ToUpper(m[1]),
		Grade:      grade,
		Subject:    strings.ToLower(strings.ReplaceAll(m[3], "-", " ")),
		Ordinal:    ordinal,
	}, true
}

// Synthesize fabricates a Context for a structured id that has no catalog row.
// The result has the same shape as a catalog-backed Context.
func Synthesize(id string, s SyntheticID) Context {
	subjectTitle := titleCase(s.Subject)
	text := fmt.Sprintf(
		"Grade %d %s topic %d of the %s curriculum. "+
			"Covers the core concepts and skills expected of grade %d students studying %s under %s.",
		s.Grade, subjectTitle, s.Ordinal, s.Curriculum, s.Grade, s.Subject, s.Curriculum,
	)
	return Context{
		topicID:         id,
		descriptiveText: text,
		relatedConcepts: []string{s.Subject, fmt.Sprintf("grade %d", s.Grade), s.Curriculum},
		synthetic:       true,
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
