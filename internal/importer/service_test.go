package importer_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/budget/internal/importer"
)

func TestService_Import(t *testing.T) {
	svc := importer.NewService(time.UTC)

	t.Run("CSV", func(t *testing.T) {
		params, err := svc.Import(importer.FormatCSV, strings.NewReader("Date,Description,Amount\n2025-09-02,Coffee,-3.50\n"))
		require.NoError(t, err)
		require.Len(t, params, 1)
		assert.Equal(t, "Coffee", params[0].RawDescription)
	})

	t.Run("OFXRejectsCSV", func(t *testing.T) {
		_, err := svc.Import(importer.FormatOFX, strings.NewReader("Date,Description,Amount\n"))
		assert.Error(t, err)
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		_, err := svc.Import("xls", strings.NewReader(""))
		assert.ErrorIs(t, err, importer.ErrUnknownFormat)
	})
}
