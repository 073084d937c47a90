package migrations

import (
	"bufio"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// goose splits statements on ';' unless they sit between StatementBegin and
// StatementEnd, so a dollar-quoted body outside such a block breaks the migration.
func TestDollarQuotedBodiesAreSingleStatements(t *testing.T) {
	files, err := fs.Glob(Migrations, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, name := range files {
		t.Run(name, func(t *testing.T) {
			f, err := Migrations.Open(name)
			require.NoError(t, err)
			defer f.Close()

			inBlock := false
			sc := bufio.NewScanner(f)
			for n := 1; sc.Scan(); n++ {
				line := strings.TrimSpace(sc.Text())
				switch {
				case strings.HasPrefix(line, "-- +goose StatementBegin"):
					require.False(t, inBlock, "line %d: nested StatementBegin", n)
					inBlock = true
				case strings.HasPrefix(line, "-- +goose StatementEnd"):
					require.True(t, inBlock, "line %d: StatementEnd without StatementBegin", n)
					inBlock = false
				case strings.HasPrefix(line, "-- +goose Up"), strings.HasPrefix(line, "-- +goose Down"):
					assert.False(t, inBlock, "line %d: direction marker inside a statement block", n)
				case strings.Contains(line, "$$"):
					assert.True(t, inBlock, "line %d: dollar quote outside StatementBegin/StatementEnd", n)
				}
			}
			require.NoError(t, sc.Err())
			assert.False(t, inBlock, "unterminated StatementBegin")
		})
	}
}

func TestUpMigrationsComeFirst(t *testing.T) {
	files, err := fs.Glob(Migrations, "*.sql")
	require.NoError(t, err)

	for _, name := range files {
		b, err := fs.ReadFile(Migrations, name)
		require.NoError(t, err)
		body := string(b)
		up := strings.Index(body, "-- +goose Up")
		down := strings.Index(body, "-- +goose Down")
		require.GreaterOrEqual(t, up, 0, name)
		if down >= 0 {
			assert.Less(t, up, down, name)
		}
	}
}
