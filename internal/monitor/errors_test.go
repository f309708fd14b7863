package monitor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassOf(t *testing.T) {
	t.Parallel()

	base := errors.New("connection reset")
	err := NewFetchError(ErrClassParse, base)
	require.Equal(t, ErrClassParse, ClassOf(err))
	require.ErrorIs(t, err, base)

	wrapped := fmt.Errorf("scan source: %w", err)
	require.Equal(t, ErrClassParse, ClassOf(wrapped))

	// Unclassified errors count as transport so they still feed the breaker.
	require.Equal(t, ErrClassTransport, ClassOf(errors.New("boom")))
}

func TestCategoryValid(t *testing.T) {
	t.Parallel()

	for _, c := range []Category{CategoryAbsence, CategorySuspension, CategoryRosterChange, CategoryOther} {
		require.True(t, c.Valid())
	}
	require.False(t, Category("injury").Valid())
}

func TestNavigationModeValid(t *testing.T) {
	t.Parallel()

	for _, m := range []NavigationMode{ModePage, ModePaginated, ModeFeed, ModeRendered} {
		require.True(t, m.Valid())
	}
	require.False(t, NavigationMode("spa").Valid())
}
