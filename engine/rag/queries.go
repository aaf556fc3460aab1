package rag

import (
	"fmt"
	"strings"

	"github.com/voyago/voyago-mvp/engine/domain"
)

// BuildQueries expands a trip request into the sub-queries run against the
// vector store. A fixed set covers the aspects every itinerary needs;
// interests, accommodation types, and free-text preferences each add one
// more. Order matters: on duplicate hits the earlier query's result wins.
func BuildQueries(req domain.TripRequest, year int) []string {
	dest := strings.TrimSpace(req.Destination)

	queries := []string{
		fmt.Sprintf("best attractions in %s", dest),
		strings.TrimSpace(fmt.Sprintf("hotels accommodation in %s %s", dest, req.AccommodationStyle)),
		fmt.Sprintf("local food restaurants in %s", dest),
		fmt.Sprintf("transportation options in %s", dest),
		fmt.Sprintf("cultural tips for %s", dest),
		fmt.Sprintf("current events in %s %d", dest, year),
		fmt.Sprintf("entry requirements for %s", dest),
		fmt.Sprintf("visa requirements for %s", dest),
	}
	if origin := strings.TrimSpace(req.Origin); origin != "" {
		queries = append(queries, fmt.Sprintf("transportation options from %s to %s", origin, dest))
	}

	for _, interest := range req.Interests {
		if interest = strings.TrimSpace(interest); interest != "" {
			queries = append(queries, fmt.Sprintf("%s in %s", interest, dest))
		}
	}
	for _, accType := range req.AccommodationTypes {
		if accType = strings.TrimSpace(accType); accType != "" {
			queries = append(queries, fmt.Sprintf("%s in %s", accType, dest))
		}
	}
	if prefs := strings.TrimSpace(req.Preferences); prefs != "" {
		queries = append(queries, fmt.Sprintf("%s in %s", prefs, dest))
	}

	return queries
}
