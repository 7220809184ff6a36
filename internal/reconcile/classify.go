package reconcile

import (
	"strconv"

	"github.com/yairfalse/inventa/pkg/resource"
)

// Classifier derives a row's status from a primary and every secondary
// that references it, in listing order. The returned row only needs
// Status, Label, Secondary, Matches and any extra Fields; the engine fills
// in the rest.
type Classifier interface {
	Classify(primary resource.Resource, matches []resource.Resource) resource.Row
}

// Labels maps statuses to report wording.
type Labels map[resource.Status]string

func (l Labels) of(s resource.Status) string {
	if v, ok := l[s]; ok {
		return v
	}
	return string(s)
}

// HealthClassifier maps a health field of the matches onto a status.
// When several records match, the last one in listing order decides.
type HealthClassifier struct {
	StatusOf func(secondary resource.Resource) resource.Status
	Labels   Labels
}

// Classify implements Classifier.
func (c HealthClassifier) Classify(_ resource.Resource, matches []resource.Resource) resource.Row {
	if len(matches) == 0 {
		return resource.Row{Status: resource.StatusUnmatched, Label: c.Labels.of(resource.StatusUnmatched)}
	}

	var (
		status resource.Status
		last   resource.Resource
	)
	for _, m := range matches {
		status = c.StatusOf(m)
		last = m
	}

	return resource.Row{
		Status:    status,
		Label:     c.Labels.of(status),
		Secondary: &last,
		Matches:   len(matches),
	}
}

// Field keys set by AggregateClassifier.
const (
	FieldMatchCount = "match_count"
	FieldLatest     = "latest_match"
)

// AggregateClassifier counts the matches accepted by Include (all of them
// when nil) and keeps the newest by CreatedAt as the representative.
type AggregateClassifier struct {
	Include func(secondary resource.Resource) bool
	Labels  Labels
}

// Classify implements Classifier.
func (c AggregateClassifier) Classify(_ resource.Resource, matches []resource.Resource) resource.Row {
	var (
		count  int
		latest *resource.Resource
	)
	for i := range matches {
		m := matches[i]
		if c.Include != nil && !c.Include(m) {
			continue
		}
		count++
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = &m
		}
	}

	row := resource.Row{
		Matches: count,
		Fields:  map[string]string{FieldMatchCount: strconv.Itoa(count)},
	}
	if latest == nil {
		row.Status = resource.StatusUnmatched
		row.Label = c.Labels.of(row.Status)
		return row
	}

	row.Status = resource.StatusHealthy
	row.Label = c.Labels.of(row.Status)
	row.Secondary = latest
	row.Fields[FieldLatest] = latest.CreatedAt.UTC().Format("2006-01-02T15:04:05Z")
	return row
}

// Passthrough marks every primary healthy. Used by reports that have no
// secondary collection.
type Passthrough struct {
	Label string
}

// Classify implements Classifier.
func (p Passthrough) Classify(_ resource.Resource, _ []resource.Resource) resource.Row {
	return resource.Row{Status: resource.StatusHealthy, Label: p.Label}
}
