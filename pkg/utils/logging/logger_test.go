package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLogger_WritesJSONFile(t *testing.T) {
	t.Chdir(t.TempDir())

	logger, err := InitLogger("test", false)
	require.NoError(t, err)

	logger.Debug("Scored donor", zap.String("donor_id", "d1"))
	_ = logger.Sync()

	files, err := filepath.Glob(filepath.Join(LogsDir, "test_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	content, err := os.ReadFile(files[0])
	require.NoError(t, err)
	line := strings.TrimSpace(string(content))
	assert.Contains(t, line, `"msg":"Scored donor"`)
	assert.Contains(t, line, `"donor_id":"d1"`)
	assert.Contains(t, line, `"env":"test"`)
}
