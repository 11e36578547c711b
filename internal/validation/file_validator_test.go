package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invsync/internal/errors"
	"invsync/internal/shared/testutil"
)

func TestFileValidator_ValidateWorkbook(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		wantType  errors.ErrorType
	}{
		{
			name: "valid workbook",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "stock.xlsx")
				require.NoError(t, os.WriteFile(file, []byte("PK"), 0644))
				return file
			},
		},
		{
			name: "lock file",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "~$stock.xlsx")
				require.NoError(t, os.WriteFile(file, []byte("PK"), 0644))
				return file
			},
			wantType: errors.ErrTypeValidation,
		},
		{
			name: "legacy xls",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "stock.xls")
			},
			wantType: errors.ErrTypeValidation,
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				dir := filepath.Join(t.TempDir(), "book.xlsx")
				require.NoError(t, os.Mkdir(dir, 0755))
				return dir
			},
			wantType: errors.ErrTypeValidation,
		},
		{
			name: "missing",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "gone.xlsx")
			},
			wantType: errors.ErrTypeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			err := NewFileValidator(logger).ValidateWorkbook(tt.setupFunc(t))
			if tt.wantType == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantType, errors.TypeOf(err))
		})
	}
}

func TestFileValidator_ValidateOutputFile(t *testing.T) {
	v := NewFileValidator(testutil.Discard())

	t.Run("creates missing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "exports", "daily", "out.csv")
		require.NoError(t, v.ValidateOutputFile(path))

		info, err := os.Stat(filepath.Dir(path))
		require.NoError(t, err)
		assert.True(t, info.IsDir())

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Empty(t, entries, "temporary file must be removed")
	})

	t.Run("rejects directory target", func(t *testing.T) {
		err := v.ValidateOutputFile(t.TempDir())
		require.Error(t, err)
		assert.Equal(t, errors.ErrTypeValidation, errors.TypeOf(err))
	})
}
