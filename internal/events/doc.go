// Package events carries per-thumbnail status notifications from the
// dispatcher to interested observers (tests, the status surface, waiting
// regeneration callers). One notifier multiplexes events keyed by thumbnail
// ID to any number of subscribers, so no component ever needs a global
// callback slot.
package events
