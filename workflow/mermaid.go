package workflow

import (
	"fmt"
	"strings"
)

// Mermaid renders the workflow definition as a Mermaid "graph TD" diagram.
// Purely derived from the spec; no effect on execution semantics.
func Mermaid(spec *Spec) string {
	var b strings.Builder
	b.WriteString("graph TD\n")

	for _, e := range spec.Executors {
		label := e.Name
		switch e.Kind {
		case ExecutorKindAgent:
			label = "🤖 " + label
		case ExecutorKindFunction:
			label = "⚙️ " + label
		}
		if e.Kind == ExecutorKindAgent && len(e.Tools) > 0 {
			shown := e.Tools
			suffix := ""
			if len(shown) > 3 {
				shown = shown[:3]
				suffix = "..."
			}
			label += fmt.Sprintf("<br/><small>%s%s</small>", strings.Join(shown, ", "), suffix)
		}
		b.WriteString(fmt.Sprintf("    %s[%q]\n", mermaidID(e.Name), escapeQuotes(label)))
	}

	for _, edge := range spec.Edges {
		arrow := "-->"
		switch edge.EdgeType {
		case EdgeTypeConditional:
			arrow = "-.->"
		case EdgeTypeFanOut, EdgeTypeFanIn:
			arrow = "==>"
		}
		line := fmt.Sprintf("    %s %s %s", mermaidID(edge.From), arrow, mermaidID(edge.To))
		if edge.Condition != nil {
			line = fmt.Sprintf("    %s %s|%s %s %v| %s",
				mermaidID(edge.From), arrow,
				edge.Condition.Field, edge.Condition.Operator, edge.Condition.Value,
				mermaidID(edge.To))
		}
		b.WriteString(line + "\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// MermaidHTML wraps the diagram in a minimal self-contained HTML page that
// loads Mermaid from a CDN, suitable for quick browser previews.
func MermaidHTML(spec *Spec) string {
	name := escapeHTML(spec.Name)
	desc := escapeHTML(spec.Description)
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>Workflow: %s</title>
    <script type="module">
        import mermaid from 'https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.esm.min.mjs';
        mermaid.initialize({ startOnLoad: true });
    </script>
</head>
<body>
    <h1>%s</h1>
    <p>%s</p>
    <pre class="mermaid">
%s
    </pre>
</body>
</html>`, name, name, desc, Mermaid(spec))
}

// mermaidID sanitizes an executor name into a Mermaid-safe node identifier.
func mermaidID(name string) string {
	r := strings.NewReplacer(" ", "_", "-", "_", ".", "_")
	return r.Replace(name)
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, "&quot;")
}

func escapeHTML(s string) string {
	r := strings.NewReplacer(`"`, "&quot;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
