package generate

import (
	"sort"
	"strings"
)

// ChartType names a diagram family the model is asked to draw.
type ChartType string

const ChartAuto ChartType = "auto"

// chartTypes maps each supported chart type to the name used in prompts.
var chartTypes = map[ChartType]string{
	ChartAuto:      "automatic (pick the most suitable diagram)",
	"flowchart":    "flowchart",
	"mindmap":      "mind map",
	"orgchart":     "organization chart",
	"sequence":     "sequence diagram",
	"class":        "UML class diagram",
	"er":           "entity relationship diagram",
	"gantt":        "Gantt chart",
	"timeline":     "timeline",
	"tree":         "tree diagram",
	"network":      "network topology diagram",
	"architecture": "architecture diagram",
	"dataflow":     "data flow diagram",
	"state":        "state diagram",
	"swimlane":     "swimlane diagram",
	"concept":      "concept map",
	"fishbone":     "fishbone diagram",
	"swot":         "SWOT analysis",
	"pyramid":      "pyramid diagram",
	"funnel":       "funnel chart",
	"venn":         "Venn diagram",
	"matrix":       "matrix diagram",
	"infographic":  "infographic",
}

// ChartTypeInfo describes one entry of the catalogue.
type ChartTypeInfo struct {
	ID   ChartType `json:"id"`
	Name string    `json:"name"`
}

// ChartTypes returns the catalogue with auto first and the rest sorted by id.
func ChartTypes() []ChartTypeInfo {
	out := make([]ChartTypeInfo, 0, len(chartTypes))
	for id, name := range chartTypes {
		if id != ChartAuto {
			out = append(out, ChartTypeInfo{ID: id, Name: name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return append([]ChartTypeInfo{{ID: ChartAuto, Name: chartTypes[ChartAuto]}}, out...)
}

// ParseChartType accepts a known id; empty selects auto.
func ParseChartType(s string) (ChartType, bool) {
	if s == "" {
		return ChartAuto, true
	}
	ct := ChartType(strings.ToLower(strings.TrimSpace(s)))
	_, ok := chartTypes[ct]
	return ct, ok
}

func (c ChartType) promptName() string {
	if name, ok := chartTypes[c]; ok {
		return name
	}
	return chartTypes[ChartAuto]
}

// DiagramSystemPrompt instructs the model to answer with an element array.
const DiagramSystemPrompt = `You are an expert diagram designer. Turn the user's request into a clear,
well laid out diagram for an infinite whiteboard canvas.

Answer with ONE JSON array of elements and nothing else. No prose, no code fences.

Each element is an object:
  {"type": "rectangle" | "ellipse" | "diamond" | "text" | "arrow" | "line",
   "id": "unique-id",
   "x": number, "y": number,
   "width": number, "height": number,
   "label": {"text": "...", "fontSize": number},
   "backgroundColor": "#hex", "strokeColor": "#hex",
   "start": {"id": "<element id>"}, "end": {"id": "<element id>"}}

Rules:
- Give every shape a unique id and an explicit x, y, width and height.
- Connect shapes with arrows or lines whose start.id and end.id name the
  connected shapes; the arrow geometry is recomputed, so approximate x, y,
  width and height are fine.
- Keep at least 80px between shapes and avoid overlaps.
- Put text inside shapes with label, not as separate text elements.
- Use a small, consistent palette; keep labels short.`

// MindmapSystemPrompt instructs the model to answer with a mindmap tree.
const MindmapSystemPrompt = `You build mind maps. Answer with ONE JSON object and nothing else:

{"mindmap": {"root": {"text": "central topic", "children": [
  {"text": "branch", "children": [{"text": "leaf"}]}
]}}}

Rules:
- Every node has a "text" string; "children" is optional.
- Use 3 to 7 main branches, each at most 3 levels deep.
- Keep node texts to a few words.`

// userPrompt frames the request for the chosen chart type.
func userPrompt(ct ChartType, input string) string {
	var b strings.Builder
	if ct != ChartAuto {
		b.WriteString("Draw a ")
		b.WriteString(ct.promptName())
		b.WriteString(".\n\n")
	}
	b.WriteString(input)
	return b.String()
}

// imagePrompt asks the model to redraw the content of an attached image.
func imagePrompt(ct ChartType, input string) string {
	var b strings.Builder
	b.WriteString("Recreate the content of the attached image as a ")
	b.WriteString(ct.promptName())
	b.WriteString(`.

Analyse carefully:
1. texts and labels
2. shapes and structure
3. flows and connections
4. layout and hierarchy
5. data and numbers

Keep every key piece of information, keep the relationships and structure,
and add short explanatory labels where needed.`)
	if strings.TrimSpace(input) != "" {
		b.WriteString("\n\nAdditional instructions: ")
		b.WriteString(input)
	}
	return b.String()
}
