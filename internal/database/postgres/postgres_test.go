package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	content := `
-- farmers
CREATE TABLE farmers (
    id TEXT PRIMARY KEY -- opaque
);

-- only a comment;
CREATE INDEX idx ON farmers (id);
`
	statements := SplitStatements(content)

	assert.Len(t, statements, 2)
	assert.Contains(t, statements[0], "CREATE TABLE farmers")
	assert.Equal(t, "CREATE INDEX idx ON farmers (id)", statements[1])
}
