package gitlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStatusString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "added", StatusAdded.String())
	assert.Equal(t, "modified", StatusModified.String())
	assert.Equal(t, "deleted", StatusDeleted.String())
	assert.Equal(t, "renamed", StatusRenamed.String())
	assert.Equal(t, "unsupported", StatusUnsupported.String())
	assert.Equal(t, "unknown", FileStatus(99).String())
}

func TestDiffContentsIdentical(t *testing.T) {
	t.Parallel()

	data := []byte("a\nb\nc\n")
	assert.Empty(t, DiffContents(data, data))
}

func TestDiffContentsPureAddition(t *testing.T) {
	t.Parallel()

	hunks := DiffContents(nil, []byte("int main() {\nreturn 0;\n}\n"))
	require.Len(t, hunks, 1)

	hunk := hunks[0]
	assert.Equal(t, 1, hunk.NewStart)
	assert.Equal(t, 3, hunk.NewLines)
	assert.Equal(t, 0, hunk.OldLines)

	require.Len(t, hunk.Lines, 3)

	for i, lc := range hunk.Lines {
		assert.Equal(t, NewSide, lc.Side)
		assert.Equal(t, i+1, lc.Line)
		assert.False(t, lc.Blank)
	}
}

func TestDiffContentsModification(t *testing.T) {
	t.Parallel()

	oldData := []byte("a\nb\nc\n")
	newData := []byte("a\nx\nc\n")

	hunks := DiffContents(oldData, newData)
	require.Len(t, hunks, 1)

	hunk := hunks[0]
	assert.Equal(t, 2, hunk.OldStart)
	assert.Equal(t, 2, hunk.NewStart)

	require.Len(t, hunk.Lines, 2)
	assert.Equal(t, LineChange{Side: OldSide, Line: 2}, hunk.Lines[0])
	assert.Equal(t, LineChange{Side: NewSide, Line: 2}, hunk.Lines[1])
}

func TestDiffContentsSeparateHunks(t *testing.T) {
	t.Parallel()

	oldData := []byte("a\nb\nc\nd\ne\n")
	newData := []byte("A\nb\nc\nd\nE\n")

	hunks := DiffContents(oldData, newData)
	require.Len(t, hunks, 2)

	assert.Equal(t, 1, hunks[0].OldStart)
	assert.Equal(t, 5, hunks[1].OldStart)
	assert.Equal(t, 5, hunks[1].NewStart)
}

func TestDiffContentsBlankLines(t *testing.T) {
	t.Parallel()

	hunks := DiffContents(nil, []byte("x\n   \n\ny\n"))
	require.Len(t, hunks, 1)

	blanks := map[int]bool{}
	for _, lc := range hunks[0].Lines {
		blanks[lc.Line] = lc.Blank
	}

	assert.False(t, blanks[1])
	assert.True(t, blanks[2])
	assert.True(t, blanks[3])
	assert.False(t, blanks[4])
}

func TestDiffContentsDeletion(t *testing.T) {
	t.Parallel()

	hunks := DiffContents([]byte("a\nb\n"), nil)
	require.Len(t, hunks, 1)

	hunk := hunks[0]
	assert.Equal(t, 2, hunk.OldLines)
	assert.Equal(t, 0, hunk.NewLines)

	for _, lc := range hunk.Lines {
		assert.Equal(t, OldSide, lc.Side)
	}
}

func TestSplitLines(t *testing.T) {
	t.Parallel()

	assert.Nil(t, splitLines(""))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\nb\n"))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\nb"))
	assert.Equal(t, []string{""}, splitLines("\n"))
}
