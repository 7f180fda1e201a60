package frontend

import (
	"embed"
	"html/template"
	"net/http"
)

//go:embed home.html
var templateFS embed.FS

var home = template.Must(template.ParseFS(templateFS, "home.html"))

func HomeHandlerFunc(paths Paths) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := home.Execute(w, struct {
			Paths Paths
		}{
			Paths: paths,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

type Paths struct {
	Fetch    string
	Generate string
	Send     string
	Cancel   string
	State    string
	Records  string
}
