package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoEntryReport = `<?xml version="1.0" encoding="UTF-8"?>
<objects>
	<object id="679511">
		<url>http://your-site.ru/item-679511</url>
		<views>15</views>
	</object>
	<object id="679512">
		<error>Что-то плохое случилось</error>
	</object>
</objects>
`

func TestVerifyReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xml")
	require.NoError(t, os.WriteFile(path, []byte(twoEntryReport), 0o644))

	assert.NoError(t, verifyReport(path, 2))

	err := verifyReport(path, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report has 2 entries")
}

func TestVerifyReport_Broken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xml")
	require.NoError(t, os.WriteFile(path, []byte("<objects><object"), 0o644))

	assert.Error(t, verifyReport(path, 0))
	assert.Error(t, verifyReport(filepath.Join(t.TempDir(), "missing.xml"), 0))
}
