package topology

import "strings"

// Filter returns the topics containing search as a case-sensitive
// substring, in their original order. An empty search returns all topics.
func Filter(topics []string, search string) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if search == "" || strings.Contains(t, search) {
			out = append(out, t)
		}
	}
	return out
}
