package pdftext

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_RejectsNonPDF(t *testing.T) {
	_, err := Read(strings.NewReader("just some plain text, not a pdf"))
	assert.ErrorIs(t, err, ErrNotPDF)
	assert.True(t, IsValidation(err))

	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	_, err = Read(bytes.NewReader(png))
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRead_TooLarge(t *testing.T) {
	big := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("a"), MaxSize)...)
	_, err := Read(bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestExtract_CorruptDoesNotPanic(t *testing.T) {
	data, err := Read(strings.NewReader("%PDF-1.4\n% truncated garbage \x00\x01\x02"))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		_, err = Extract(data)
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptPDF) || errors.Is(err, ErrNoText))
	assert.False(t, IsValidation(err))
}
