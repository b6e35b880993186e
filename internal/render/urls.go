package render

import (
	"sort"
	"strings"
)

// URLs lists the externally reachable URLs of a rendered manifest.
func URLs(m *Manifest) []string {
	var urls []string
	for _, ing := range m.Ingress {
		for _, h := range ing.Hosts {
			for _, p := range h.Paths {
				if !strings.HasPrefix(p, "/") {
					p = "/" + p
				}
				urls = append(urls, "https://"+h.Host+p)
			}
		}
	}
	sort.Strings(urls)
	return urls
}
