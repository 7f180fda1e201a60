package sepadoc

import (
	"io"
	"os"
	"path/filepath"
	"text/template"
)

// MermaidDiagram writes a mermaid state diagram of the pipeline state machine to path.
func MermaidDiagram(path string, d MermaidDirection) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteMermaidDiagram(file, d)
}

// WriteMermaidDiagram writes the diagram to w.
func WriteMermaidDiagram(w io.Writer, d MermaidDirection) error {
	if d == UnknownDirection {
		d = LeftToRightDirection
	}

	mf := MermaidFormat{
		Direction:      d,
		StartingPoints: []string{StageStateIdle.String()},
	}

	for _, from := range stageStateOrder {
		for _, to := range stageStateOrder {
			if !stageTransitions[from][to] {
				continue
			}

			mf.Transitions = append(mf.Transitions, MermaidTransition{
				From:  from.String(),
				To:    to.String(),
				Label: transitionLabel(from, to),
			})
		}
	}

	return template.Must(template.New("").Parse("```"+mermaidTemplate+"```")).Execute(w, mf)
}

func transitionLabel(from, to StageState) string {
	switch {
	case from == StageStateIdle:
		return "command"
	case to == StageStateCancelled:
		return "cancel"
	case to == StageStateFailed:
		return "error"
	case to == StageStateIdle:
		return ""
	default:
		return "done"
	}
}

type MermaidFormat struct {
	Direction      MermaidDirection
	StartingPoints []string
	Transitions    []MermaidTransition
}

type MermaidDirection string

const (
	UnknownDirection     MermaidDirection = ""
	TopToBottomDirection MermaidDirection = "TB"
	LeftToRightDirection MermaidDirection = "LR"
	RightToLeftDirection MermaidDirection = "RL"
	BottomToTopDirection MermaidDirection = "BT"
)

type MermaidTransition struct {
	From  string
	To    string
	Label string
}

var mermaidTemplate = `mermaid
stateDiagram-v2
	direction {{.Direction}}
	{{range $key, $value := .StartingPoints }}
	[*]-->{{$value}}
	{{- end }}
	{{range $key, $value := .Transitions }}
	{{$value.From}}-->{{$value.To}}{{if $value.Label}}: {{$value.Label}}{{end}}
	{{- end }}
`
