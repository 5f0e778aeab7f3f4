package star

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryorestore/pkg/errdefs"
)

const micrographs = `
# version 30001

data_optics

loop_
_rlnOpticsGroupName #1
_rlnOpticsGroup #2
_rlnMicrographPixelSize #3
opticsGroup1            1     0.885000

# version 30001

data_micrographs

loop_
_rlnMicrographName #1
_rlnOpticsGroup #2
_rlnCtfMaxResolution #3
MotionCorr/job002/mic_0001.mrc  1  3.412
MotionCorr/job002/mic_0002.mrc  1
  4.105
"MotionCorr/job002/with space.mrc" 1 2.9

data_general

_rlnImageSizeX    4096
_rlnImageSizeY    4096
_rlnComment 'binned by 2' # trailing comment
`

// TestParse reads loops, multi-line records and key/value blocks
func TestParse(t *testing.T) {
	file, err := Parse(strings.NewReader(micrographs))
	require.NoError(t, err)
	require.Len(t, file.Tables, 3)

	optics, ok := file.Table("optics")
	require.True(t, ok)
	assert.Equal(t, []string{"rlnOpticsGroupName", "rlnOpticsGroup", "rlnMicrographPixelSize"}, optics.Columns)
	assert.Equal(t, 1, optics.Len())
	px, err := optics.Float("rlnMicrographPixelSize")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.885}, px)

	mics, ok := file.Table("micrographs")
	require.True(t, ok)
	assert.Equal(t, 3, mics.Len())
	names, err := mics.Column("rlnMicrographName")
	require.NoError(t, err)
	assert.Equal(t, "MotionCorr/job002/with space.mrc", names[2])
	res, err := mics.Float("rlnCtfMaxResolution")
	require.NoError(t, err)
	assert.Equal(t, []float64{3.412, 4.105, 2.9}, res)
	groups, err := mics.Int("rlnOpticsGroup")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1}, groups)

	general, ok := file.Table("general")
	require.True(t, ok)
	assert.Equal(t, 1, general.Len())
	size, err := general.Int("rlnImageSizeX")
	require.NoError(t, err)
	assert.Equal(t, []int{4096}, size)
	assert.Equal(t, []string{"binned by 2"}, general.Values["rlnComment"])

	_, ok = file.Table("particles")
	assert.False(t, ok)
}

// TestTableErrors distinguishes missing columns from bad values
func TestTableErrors(t *testing.T) {
	file, err := Parse(strings.NewReader(micrographs))
	require.NoError(t, err)
	mics, _ := file.Table("micrographs")

	_, err = mics.Float("rlnDefocusU")
	assert.True(t, errors.Is(err, errdefs.ErrNotFound))
	_, err = mics.Int("rlnCtfMaxResolution")
	assert.True(t, errors.Is(err, errdefs.ErrFormat))
	_, err = mics.Float("rlnMicrographName")
	assert.True(t, errors.Is(err, errdefs.ErrFormat))
}

// TestParseInvalid rejects malformed content
func TestParseInvalid(t *testing.T) {
	cases := map[string]string{
		"before block":      "_rlnX 1\n",
		"incomplete record": "data_\nloop_\n_rlnA\n_rlnB\n1 2\n3\n",
		"value outside":     "data_x\n1 2 3\n",
		"duplicate column":  "data_x\nloop_\n_rlnA\n_rlnA\n",
		"pair arity":        "data_x\n_rlnA 1 2\n",
		"loop after pairs":  "data_x\n_rlnA 1\nloop_\n_rlnB\n2\n",
		"pair after loop":   "data_x\nloop_\n_rlnA\n1\n_rlnB 2\n",
		"open quote":        "data_x\n_rlnA 'abc\n",
	}
	for name, content := range cases {
		_, err := Parse(strings.NewReader(content))
		assert.True(t, errors.Is(err, errdefs.ErrFormat), name)
	}
}

// TestLoad reads from disk and reports missing files
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "micrographs_ctf.star")
	require.NoError(t, os.WriteFile(path, []byte(micrographs), 0644))

	file, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, file.Tables, 3)

	_, err = Load(filepath.Join(dir, "missing.star"))
	assert.True(t, errors.Is(err, errdefs.ErrNotFound))
}
