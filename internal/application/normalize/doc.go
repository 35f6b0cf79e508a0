// Package normalize turns raw provider payloads into report facts.
//
// Normalizers never fail: a malformed field degrades to its zero value and
// the record is kept, so one bad row cannot hide the rest of a period.
package normalize
