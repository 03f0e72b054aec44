package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/abiosoft/mold"
	"github.com/russross/blackfriday/v2"
)

//go:embed templates
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"markdown": func(text string) template.HTML {
		return template.HTML(blackfriday.Run([]byte(text)))
	},
}

// pageTemplates renders markdown pages inside the shared layout.
var pageTemplates = mold.Must(mold.New(templateFS,
	mold.WithRoot("templates"),
	mold.WithLayout("layouts/layout.html"),
	mold.WithFuncMap(templateFuncs),
))

type pageContent struct {
	Title   string
	Content string
}

func stringOr(str, or string) string {
	if str != "" {
		return str
	}
	return or
}

func (s *Server) renderPage(w http.ResponseWriter, data pageContent) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.Render(w, "pages/page.html", data); err != nil {
		s.logger.Errorw("while rendering page", "title", data.Title, "error", err)
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	var markdownBuilder strings.Builder
	fmt.Fprintf(&markdownBuilder, "# Imprint annotator\n")
	fmt.Fprintf(&markdownBuilder, "> %s\n\n", strings.ReplaceAll(stringOr(s.cfg.Meta.Description, "(No description provided)"), "\n", "\n>"))
	fmt.Fprintf(&markdownBuilder, "[Annotation instructions](/help)\n")
	s.renderPage(w, pageContent{Title: "Welcome", Content: markdownBuilder.String()})
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	var markdownBuilder strings.Builder
	fmt.Fprintf(&markdownBuilder, "# [<](/) Annotation help\n")
	fmt.Fprintf(&markdownBuilder, "## Description\n")
	fmt.Fprintf(&markdownBuilder, "> %s\n\n", strings.ReplaceAll(stringOr(s.cfg.Meta.Description, "(No description provided)"), "\n", "\n>"))
	fmt.Fprintf(&markdownBuilder, "## How to annotate\n")
	fmt.Fprintf(&markdownBuilder, "Each image comes with candidate obstruction boxes. For every box, decide:\n\n")
	fmt.Fprintf(&markdownBuilder, "- **Yes** confirms the box marks a real obstruction.\n")
	fmt.Fprintf(&markdownBuilder, "- **No** rejects it.\n")
	fmt.Fprintf(&markdownBuilder, "- Draw a new box over anything the candidates missed, then pick its type.\n\n")
	fmt.Fprintf(&markdownBuilder, "Boxes you drew yourself can be moved, resized, relabeled or deleted. Candidate boxes cannot.\n\n")
	fmt.Fprintf(&markdownBuilder, "## Obstruction types\n")
	for _, opt := range s.vocab {
		fmt.Fprintf(&markdownBuilder, "- **%s** (`%s`)\n", opt.Label, opt.Value)
	}
	fmt.Fprintf(&markdownBuilder, "- **Other...** for anything not listed, typed in free text.\n")
	s.renderPage(w, pageContent{Title: "Help", Content: markdownBuilder.String()})
}
