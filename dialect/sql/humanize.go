package sql

import (
	"regexp"
	"strings"
)

// ModelMarker is the comment appended to SELECTs whose column list was
// generated from model definitions.
const ModelMarker = "orm:model"

var (
	selectListRe    = regexp.MustCompile(`(?s)^(SELECT (?:DISTINCT )?)(.*?)( FROM .*)$`)
	qualifiedColRe  = regexp.MustCompile(`^(\w+)\.\w+( AS \w+)?$`)
	modelMarkerText = " /* " + ModelMarker + " */"
)

// Humanize makes generated SQL readable for logs. SQL without the model
// marker is returned unchanged. Marked SQL loses the marker and every run
// of columns from the same table collapses to table.*:
//
//	SELECT c.id AS c_id, c.name AS c_name FROM categories AS c /* orm:model */
//	SELECT c.* FROM categories AS c
func Humanize(query string) string {
	if !strings.HasSuffix(query, ModelMarker+" */") {
		return query
	}
	query = strings.Replace(query, modelMarkerText, "", 1)
	m := selectListRe.FindStringSubmatch(query)
	if m == nil {
		return query
	}
	var (
		out  []string
		last string
	)
	for _, col := range strings.Split(m[2], ", ") {
		cm := qualifiedColRe.FindStringSubmatch(col)
		if cm == nil {
			out, last = append(out, col), ""
			continue
		}
		if cm[1] != last {
			out, last = append(out, cm[1]+".*"), cm[1]
		}
	}
	return m[1] + strings.Join(out, ", ") + m[3]
}
