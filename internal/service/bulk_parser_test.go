package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBulkCSVColumnsAnyOrder(t *testing.T) {
	content := "\xef\xbb\xbfDegree_Name, STUDENT_NAME ,student_email,notes\nBSc,Jane Doe,jane@example.com,x\n\n\"MSc, Physics\",John,,y\n"

	rows, err := parseBulkCSV([]byte(content))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Row)
	assert.Equal(t, "Jane Doe", rows[0].Request.StudentName)
	assert.Equal(t, "BSc", rows[0].Request.DegreeName)
	assert.Equal(t, 2, rows[1].Row)
	assert.Equal(t, "MSc, Physics", rows[1].Request.DegreeName)
	assert.Empty(t, rows[1].Request.StudentEmail)
}

func TestParseBulkCSVShortRows(t *testing.T) {
	rows, err := parseBulkCSV([]byte("student_name,student_email,degree_name\nJane\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Jane", rows[0].Request.StudentName)
	assert.Empty(t, rows[0].Request.DegreeName)
}

func TestParseBulkCSVErrors(t *testing.T) {
	_, err := parseBulkCSV(nil)
	assert.ErrorContains(t, err, "header row required")

	_, err = parseBulkCSV([]byte("student_name,degree_name\nJane,BSc\n"))
	assert.ErrorContains(t, err, "student_email")

}

func TestParseBulkCSVMalformedLineBecomesRow(t *testing.T) {
	content := "student_name,student_email,degree_name\nAnn,ann@example.com,BSc\nB\"en,ben@example.com,BSc\nCat,cat@example.com,MSc\n"

	rows, err := parseBulkCSV([]byte(content))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Empty(t, rows[0].ParseError)
	assert.Equal(t, 2, rows[1].Row)
	assert.Contains(t, rows[1].ParseError, "bare \"")
	assert.Equal(t, "Cat", rows[2].Request.StudentName)
	assert.Empty(t, rows[2].ParseError)

	rows, err = parseBulkCSV([]byte("student_name,student_email,degree_name\n\"unterminated,x,y\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NotEmpty(t, rows[0].ParseError)
}
