package analysis

import (
	"bytes"
	"strings"
	"text/template"
)

const (
	branchPractice  = "practice"
	branchRemediate = "remediate"
	branchBalanced  = "balanced"
)

type contentData struct {
	Accuracy   int
	Struggling []string
	Mastered   []string
}

var contentTemplates = template.Must(template.New("content").
	Funcs(template.FuncMap{"join": func(s []string) string { return strings.Join(s, " and ") }}).
	Parse(`{{define "practice"}}Excellent work at {{.Accuracy}}% accuracy! You're ready for more challenging practice{{if .Mastered}} building on {{join .Mastered}}{{end}}.{{end}}` +
		`{{define "remediate"}}Let's strengthen your foundation{{if .Struggling}} in {{join .Struggling}}{{end}} with step-by-step explanations before moving on to more practice.{{end}}` +
		`{{define "balanced"}}Good progress at {{.Accuracy}}% accuracy. Let's balance new concepts with practice to build confidence.{{end}}`))

func renderContent(branch string, data contentData) string {
	var buf bytes.Buffer
	if err := contentTemplates.ExecuteTemplate(&buf, branch, data); err != nil {
		// Templates are static; an execution error means a programming bug.
		panic("analysis: render " + branch + ": " + err.Error())
	}
	return buf.String()
}
