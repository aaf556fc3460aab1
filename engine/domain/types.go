// Package domain defines core domain types, constants, and validation for the
// Voyago retrieval engine. It acts as the validation gate at pipeline entry points.
package domain

// TripRequest describes one itinerary request as received from the caller.
// The retrieval core only reads it; the form layer owns its construction.
type TripRequest struct {
	Destination        string   `json:"destination"`
	Origin             string   `json:"origin,omitempty"`
	Interests          []string `json:"interests,omitempty"`
	AccommodationStyle string   `json:"accommodation_style,omitempty"`
	AccommodationTypes []string `json:"accommodation_types,omitempty"`
	Preferences        string   `json:"preferences,omitempty"`
}

// SearchHit is a single result from the web search provider.
type SearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SourceDoc is one fetched and cleaned web page, ready for chunking.
type SourceDoc struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}
