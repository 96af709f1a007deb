package main

import (
	"html/template"

	"github.com/microcosm-cc/bluemonday"
)

// ugcPolicy keeps basic formatting in event text when rendered as HTML.
// Titles and names are stored as typed and escaped by the templates.
var ugcPolicy = bluemonday.UGCPolicy()

// richText renders user supplied event text with only safe formatting kept.
func richText(s string) template.HTML {
	return template.HTML(ugcPolicy.Sanitize(s))
}
