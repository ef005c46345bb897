package gmail

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// ErrUnknownLabels is wrapped by InvalidLabelsError.
var ErrUnknownLabels = errors.New("unknown labels")

// InvalidLabelsError lists label names that do not exist in the mailbox.
type InvalidLabelsError struct {
	Names []string
}

func (e *InvalidLabelsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnknownLabels, strings.Join(e.Names, ", "))
}

func (e *InvalidLabelsError) Unwrap() error {
	return ErrUnknownLabels
}

// LabelIndex maps label names to IDs and back.
type LabelIndex struct {
	names    []string
	nameToID map[string]string
	idToName map[string]string
}

// NewLabelIndex indexes labels in the order the API returned them. A later
// label with a duplicate name replaces the earlier one.
func NewLabelIndex(labels []*gmail.Label) *LabelIndex {
	idx := &LabelIndex{
		nameToID: make(map[string]string, len(labels)),
		idToName: make(map[string]string, len(labels)),
	}
	for _, l := range labels {
		if l == nil {
			continue
		}
		if _, seen := idx.nameToID[l.Name]; !seen {
			idx.names = append(idx.names, l.Name)
		}
		idx.nameToID[l.Name] = l.Id
	}
	for name, id := range idx.nameToID {
		idx.idToName[id] = name
	}
	return idx
}

// Len returns the number of distinct label names.
func (idx *LabelIndex) Len() int {
	return len(idx.names)
}

// Names returns the label names in API order.
func (idx *LabelIndex) Names() []string {
	return append([]string(nil), idx.names...)
}

// SortedNames returns the label names in alphabetical order.
func (idx *LabelIndex) SortedNames() []string {
	names := idx.Names()
	sort.Strings(names)
	return names
}

// ID returns the ID of the named label.
func (idx *LabelIndex) ID(name string) (string, bool) {
	id, ok := idx.nameToID[name]
	return id, ok
}

// Name returns the name of a label ID, falling back to the ID itself.
func (idx *LabelIndex) Name(id string) string {
	if name, ok := idx.idToName[id]; ok {
		return name
	}
	return id
}

// Resolve maps names to IDs. Every unknown name is reported in one
// *InvalidLabelsError.
func (idx *LabelIndex) Resolve(names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	var invalid []string
	for _, name := range names {
		id, ok := idx.nameToID[name]
		if !ok {
			invalid = append(invalid, name)
			continue
		}
		ids = append(ids, id)
	}
	if len(invalid) > 0 {
		return nil, &InvalidLabelsError{Names: invalid}
	}
	return ids, nil
}

// LabelNameQuery builds a search query matching messages that carry all of
// the named labels. Names are quoted so spaces survive.
func LabelNameQuery(names []string) string {
	terms := make([]string, len(names))
	for i, name := range names {
		terms[i] = fmt.Sprintf("label:%q", name)
	}
	return strings.Join(terms, " ")
}

// LabelIDQuery builds a search query from label IDs.
func LabelIDQuery(ids []string) string {
	terms := make([]string, len(ids))
	for i, id := range ids {
		terms[i] = "label:" + id
	}
	return strings.Join(terms, " ")
}

// ReadLabelsCSV reads label names from the first column of each non-empty
// row.
func ReadLabelsCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var names []string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read labels file: %w", err)
		}
		if len(row) == 0 {
			continue
		}
		names = append(names, strings.TrimSpace(row[0]))
	}
	return names, nil
}

// ParseLabelInput splits comma-separated label names and trims each one.
func ParseLabelInput(s string) []string {
	parts := strings.Split(strings.TrimSpace(s), ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
