// Package timeline extracts raw (date, status) observations from the
// rendered text of a case page. Output order follows discovery order, not
// chronology; sorting is the classifier's concern.
package timeline

// Entry is one observed status event before classification. Date is
// whatever the normalizer produced, which may still be a non-ISO string
// the classifier will discard.
type Entry struct {
	Date   string
	Status string
}
