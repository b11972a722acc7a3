package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gazerrors "github.com/overture-tools/gazetteer/internal/errors"
)

func TestReadBaseline(t *testing.T) {
	csv := `gers_id,version
abc,1
def,3
ghi,12
`
	versions, err := readBaseline(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"abc": 1, "def": 3, "ghi": 12}, versions)
}

func TestReadBaselineCaseInsensitiveHeader(t *testing.T) {
	csv := `name,GERS_ID,Version
Berlin,abc,2
Paris,def,5
`
	versions, err := readBaseline(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"abc": 2, "def": 5}, versions)
}

func TestReadBaselineMissingColumnsFatal(t *testing.T) {
	csv := `id,ver
abc,1
`
	_, err := readBaseline(strings.NewReader(csv))
	require.Error(t, err)
	assert.Equal(t, gazerrors.ErrCodeBaselineColumns, gazerrors.CodeOf(err))
	assert.True(t, gazerrors.IsFatal(err))
}

func TestReadBaselineSkipsBadRows(t *testing.T) {
	csv := `gers_id,version
good,1
,2
blank-version,
not-a-number,xyz
short
also-good,7
`
	versions, err := readBaseline(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"good": 1, "also-good": 7}, versions)
}

func TestReadBaselineEmptyFile(t *testing.T) {
	_, err := readBaseline(strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, gazerrors.IsFatal(err))
}

func TestReadBaselineHeaderOnly(t *testing.T) {
	versions, err := readBaseline(strings.NewReader("gers_id,version\n"))
	require.NoError(t, err)
	assert.Empty(t, versions)
}
