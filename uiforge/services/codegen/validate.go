package codegen

import "strings"

// ValidateJSX runs cheap structural checks over generated code and returns
// human readable warnings. Empty code yields none.
func ValidateJSX(jsx string) []string {
	if strings.TrimSpace(jsx) == "" {
		return nil
	}
	var warnings []string
	if !strings.Contains(jsx, "export") {
		warnings = append(warnings, "component has no export")
	}
	if !strings.Contains(jsx, "function") && !strings.Contains(jsx, "const") && !strings.Contains(jsx, "=>") {
		warnings = append(warnings, "no component function found")
	}
	if !strings.Contains(jsx, "return") && !strings.Contains(jsx, "=>") {
		warnings = append(warnings, "component does not return anything")
	}
	if !strings.Contains(jsx, "<") || !strings.Contains(jsx, ">") {
		warnings = append(warnings, "no JSX markup found")
	}
	if strings.Count(jsx, "{") != strings.Count(jsx, "}") {
		warnings = append(warnings, "mismatched braces")
	}
	if strings.Count(jsx, "(") != strings.Count(jsx, ")") {
		warnings = append(warnings, "mismatched parentheses")
	}
	return warnings
}
