package migrate

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/pressly/goose/v3"
)

// sqlTemplate seeds new files with both directions so ValidateFS accepts
// them before any SQL is written.
var sqlTemplate = template.Must(template.New("jewelbid.sql").Parse(`-- +goose Up
-- +goose StatementBegin
-- {{.CamelName}}: write the forward change here.
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- {{.CamelName}}: undo the forward change here.
-- +goose StatementEnd
`))

// Create writes a timestamped SQL migration into dir. An empty dir targets
// DefaultDir, which is what the binary embeds.
func Create(dir, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("migration name is required")
	}
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %q: %w", dir, err)
	}
	goose.SetSequential(false)
	if err := goose.CreateWithTemplate(nil, dir, sqlTemplate, name, "sql"); err != nil {
		return fmt.Errorf("create migration %q: %w", name, err)
	}
	return nil
}
