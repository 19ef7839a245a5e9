// Package docs renders the README placed next to each artifact.
package docs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/docker/go-units"
	"github.com/google/renameio"

	"makellamafile/internal/modelinfo"
)

// FileName is the document written into the artifact directory.
const FileName = "README.md"

// Params is everything the README reports.
type Params struct {
	ModelName    string
	InputPath    string
	ArtifactPath string
	Digest       string
	Description  string
	Info         modelinfo.Info
	// Now is injected for deterministic output; zero means time.Now.
	Now time.Time
}

type view struct {
	ModelName    string
	Description  string
	OriginalFile string
	ArtifactFile string
	Digest       string
	Size         string
	Parameters   string
	ContextSize  string
	ModelType    string
	Generated    string
}

var readme = template.Must(template.New("readme").Parse(`# {{.ModelName}}
{{if .Description}}
{{.Description}}
{{end}}
## Model Information

- **Original file:** {{.OriginalFile}}
- **Llamafile:** {{.ArtifactFile}}
- **SHA-256:** {{.Digest}}
- **Size:** {{.Size}}
{{- if .Parameters}}
- **Parameters:** {{.Parameters}}
{{- end}}
{{- if .ContextSize}}
- **Context size:** {{.ContextSize}}
{{- end}}
{{- if .ModelType}}
- **Model type:** {{.ModelType}}
{{- end}}

Model details are inferred from the file name and may be incomplete.

## Usage

Make the file executable (only needed once):

` + "```" + `sh
chmod +x {{.ArtifactFile}}
` + "```" + `

Start the built-in server and web UI on http://localhost:8080:

` + "```" + `sh
./{{.ArtifactFile}}
` + "```" + `

Run a one-off prompt from the command line:

` + "```" + `sh
./{{.ArtifactFile}} --cli -p "Tell me a short story"
` + "```" + `

---
Generated by makellamafile on {{.Generated}}
`))

// Render returns the README contents for p. The artifact must already exist
// so its size can be reported.
func Render(p Params) ([]byte, error) {
	fi, err := os.Stat(p.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	v := view{
		ModelName:    p.ModelName,
		Description:  p.Description,
		OriginalFile: filepath.Base(p.InputPath),
		ArtifactFile: filepath.Base(p.ArtifactPath),
		Digest:       p.Digest,
		Size:         units.HumanSize(float64(fi.Size())),
		Parameters:   known(p.Info.Parameters),
		ContextSize:  known(p.Info.ContextSize),
		ModelType:    known(p.Info.ModelType),
		Generated:    now.Format(time.RFC3339),
	}
	var buf bytes.Buffer
	if err := readme.Execute(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders the README into dir and replaces any previous one atomically.
func Write(dir string, p Params) (string, error) {
	b, err := Render(p)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName)
	if err := renameio.WriteFile(path, b, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func known(v string) string {
	if modelinfo.Known(v) {
		return v
	}
	return ""
}
