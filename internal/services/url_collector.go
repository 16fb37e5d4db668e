package services

import (
	"strings"

	"speaker-events-finder/internal/models"
)

// CollectURLs merges the URLs of several search result sets in the order the sets are given.
// Duplicates are dropped by exact URL string, keeping the first occurrence. Nil sets,
// sets without a web section and hits without a URL are skipped.
func CollectURLs(resultSets ...*models.SearchResultSet) []string {
	urls := []string{}
	seen := make(map[string]bool)

	for _, set := range resultSets {
		if set == nil {
			continue
		}
		for _, hit := range set.Web {
			url := strings.TrimSpace(hit.URL)
			if url == "" || seen[url] {
				continue
			}
			seen[url] = true
			urls = append(urls, url)
		}
	}

	return urls
}

// ResultSetFromURLs wraps a URL list as a single search result set
func ResultSetFromURLs(urls []string) *models.SearchResultSet {
	set := &models.SearchResultSet{Web: make([]models.SearchHit, 0, len(urls))}
	for _, url := range urls {
		set.Web = append(set.Web, models.SearchHit{URL: url})
	}
	return set
}
