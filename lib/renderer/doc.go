// Package renderer turns a planned layout into a report and renders the report
// through embedded text templates with sprig functions.
//
// Example:
//
//	report := renderer.NewLayoutReport(layout, groups)
//	md, err := renderer.Render(renderer.TplLayoutReport, report)
package renderer
