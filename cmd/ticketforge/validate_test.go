package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCandidatesJSONWithNoise(t *testing.T) {
	t.Parallel()

	got, err := parseCandidates("out.txt", []byte("Model said:\n[{\"title\": \"a\"},]\nbye"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0]["title"])
}

func TestParseCandidatesYAML(t *testing.T) {
	t.Parallel()

	data := []byte("- title: First\n  type: bug\n- title: Second\n")
	got, err := parseCandidates("batch.yaml", data)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "First", got[0]["title"])
	require.Equal(t, "bug", got[0]["type"])
}

func TestParseCandidatesYAMLSingleDocument(t *testing.T) {
	t.Parallel()

	got, err := parseCandidates("one.yml", []byte("title: Solo\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Solo", got[0]["title"])
}

func TestShortID(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0b2f4c1d", shortID("0b2f4c1d-9d2a-4a1f-bb8e-000000000000"))
	require.Equal(t, "obj-42", shortID("obj-42"))
	require.Equal(t, "plain", shortID("plain"))
}
