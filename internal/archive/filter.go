package archive

// HasGeoSignal reports whether the event carries geographic metadata: an
// explicit coordinate pair or a named place with bounding box. Presence only;
// the raw payload is archived as delivered, so present-but-malformed geo data
// is not rejected here.
func HasGeoSignal(e *Event) bool {
	if e == nil {
		return false
	}
	return e.Coordinates != nil || e.Place != nil
}
