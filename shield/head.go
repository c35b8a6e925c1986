package shield

import (
	"net/http"
	"slices"
)

// HeadToGet serves HEAD as GET for the listed paths only. Elsewhere HEAD is
// left alone so it cannot trigger a browser extraction.
func HeadToGet(paths ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead && slices.Contains(paths, r.URL.Path) {
				r.Method = http.MethodGet
			}
			next.ServeHTTP(w, r)
		})
	}
}
