package passphrase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSourceUsesEnvironment(t *testing.T) {
	t.Setenv("LOAN_TEST_PASS", "s3cret ")
	src := NewSource("LOAN_TEST_PASS", "")
	value, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, "s3cret ", value)

	t.Setenv("LOAN_TEST_PASS", "changed")
	value, err = src.Get()
	require.NoError(t, err)
	require.Equal(t, "s3cret ", value, "value is cached after first read")
}

func TestSourceRejectsBlankEnvironment(t *testing.T) {
	t.Setenv("LOAN_TEST_PASS", "   ")
	_, err := NewSource("LOAN_TEST_PASS", "").Get()
	require.ErrorContains(t, err, "set but empty")
}
